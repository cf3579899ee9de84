package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZehenForever/dpsboard/internal/model"
)

const (
	TypeDamage         = "damage"
	TypeClearConfirmed = "clear_confirmed"

	ClearCommand = "clear"
	PingCommand  = "ping"
	PongReply    = "pong"
)

var ErrNotJSON = errors.New("feed: frame is not a json object")

// Payload is the data object of a "damage" message.
type Payload struct {
	Damage       model.DamageTable         `json:"damage"`
	DamageSingle model.DamageTable         `json:"damage2"`
	Buffs        model.BuffTable           `json:"buff"`
	SelfID       int64                     `json:"self_id"`
	Enemy        model.EnemyInfo           `json:"enemy"`
	HitTime      map[int64]model.HitWindow `json:"hit_time"`
	Users        map[int64]model.UserInfo  `json:"user,omitempty"`
	UserTmp      json.RawMessage           `json:"user_tmp,omitempty"`
	Stats        *model.ServerStats        `json:"stats,omitempty"`
}

type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp float64         `json:"timestamp,omitempty"`
}

type Message struct {
	Type     string
	Snapshot *model.Snapshot
	At       time.Time
}

// Decode parses one text frame. Plain "pong" replies come back as a message of
// that type with no error.
func Decode(frame []byte) (Message, error) {
	if string(frame) == PongReply {
		return Message{Type: PongReply}, nil
	}
	if len(frame) == 0 || frame[0] != '{' {
		return Message{}, ErrNotJSON
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("feed: decode envelope: %w", err)
	}

	msg := Message{Type: env.Type}
	switch env.Type {
	case TypeDamage:
		if len(env.Data) == 0 {
			return Message{}, errors.New("feed: damage message without data")
		}
		var p Payload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return Message{}, fmt.Errorf("feed: decode damage: %w", err)
		}
		msg.Snapshot = p.Snapshot()
	case TypeClearConfirmed:
		if env.Timestamp > 0 {
			msg.At = time.UnixMilli(int64(env.Timestamp * 1000))
		}
	}
	return msg, nil
}

func (p Payload) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		Damage:       p.Damage,
		DamageSingle: p.DamageSingle,
		Buffs:        p.Buffs,
		SelfID:       p.SelfID,
		Enemy:        p.Enemy,
		Users:        p.Users,
		HitTime:      p.HitTime,
		Stats:        p.Stats,
	}
}

func PayloadFrom(s *model.Snapshot) Payload {
	return Payload{
		Damage:       s.Damage,
		DamageSingle: s.DamageSingle,
		Buffs:        s.Buffs,
		SelfID:       s.SelfID,
		Enemy:        s.Enemy,
		HitTime:      s.HitTime,
		Users:        s.Users,
		Stats:        s.Stats,
	}
}

// EncodeDamage builds a "damage" frame for s.
func EncodeDamage(s *model.Snapshot) ([]byte, error) {
	data, err := json.Marshal(PayloadFrom(s))
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: TypeDamage, Data: data})
}

func EncodeClearConfirmed(at time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypeClearConfirmed, Timestamp: float64(at.UnixMilli()) / 1000})
}
