package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ZehenForever/dpsboard/internal/model"
)

var ErrNoDamage = errors.New("export: document has no damage table")

// Document is the saved-session file format.
type Document struct {
	ID           string                    `json:"id"`
	ExportedAt   time.Time                 `json:"exported_at"`
	Damage       model.DamageTable         `json:"damageDB"`
	DamageSingle model.DamageTable         `json:"damageDB2"`
	Buffs        model.BuffTable           `json:"buffDB"`
	SelfID       int64                     `json:"selfID"`
	Enemy        model.EnemyInfo           `json:"enemyData"`
	Users        map[int64]model.UserInfo  `json:"userData"`
	HitTime      map[int64]model.HitWindow `json:"hitTime"`
}

func NewDocument(snap *model.Snapshot, now time.Time) Document {
	if snap == nil {
		snap = model.NewEmptySnapshot()
	}
	return Document{
		ID:           uuid.NewString(),
		ExportedAt:   now.UTC(),
		Damage:       snap.Damage,
		DamageSingle: snap.DamageSingle,
		Buffs:        snap.Buffs,
		SelfID:       snap.SelfID,
		Enemy:        snap.Enemy,
		Users:        snap.Users,
		HitTime:      snap.HitTime,
	}
}

func (d Document) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		Damage:       d.Damage,
		DamageSingle: d.DamageSingle,
		Buffs:        d.Buffs,
		SelfID:       d.SelfID,
		Enemy:        d.Enemy,
		Users:        d.Users,
		HitTime:      d.HitTime,
	}
}

func WriteDocument(w io.Writer, snap *model.Snapshot, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(snap, now))
}

// ReadDocument decodes a saved session into a snapshot ready for Replace.
func ReadDocument(r io.Reader) (*model.Snapshot, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("export: decode document: %w", err)
	}
	if d.Damage == nil {
		return nil, ErrNoDamage
	}
	return d.Snapshot(), nil
}

func FileName(now time.Time) string {
	return "savedata_" + now.Format("20060102_150405") + ".json"
}

// SaveDocument writes the snapshot into dir and returns the file path.
func SaveDocument(dir string, snap *model.Snapshot, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteDocument(f, snap, now); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func LoadDocument(path string) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDocument(f)
}
