package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type refKind uint8

const (
	refSaved refKind = iota + 1
	refDraft
)

// EntityRef идентифицирует строку в черновике договора.
// Saved ссылается на сохраненную запись, Draft на строку, которой еще нет в базе.
type EntityRef struct {
	kind refKind
	key  uuid.UUID
}

// SavedRef ссылка на сохраненную запись
func SavedRef(id uuid.UUID) EntityRef {
	return EntityRef{kind: refSaved, key: id}
}

// NewDraftRef новая локальная ссылка черновика
func NewDraftRef() EntityRef {
	return EntityRef{kind: refDraft, key: uuid.New()}
}

func (r EntityRef) IsZero() bool { return r.kind == 0 }

func (r EntityRef) IsDraft() bool { return r.kind == refDraft }

// SavedID возвращает идентификатор в базе, если запись уже сохранена
func (r EntityRef) SavedID() (uuid.UUID, bool) {
	if r.kind != refSaved {
		return uuid.Nil, false
	}
	return r.key, true
}

func (r EntityRef) String() string {
	switch r.kind {
	case refSaved:
		return "saved:" + r.key.String()
	case refDraft:
		return "draft:" + r.key.String()
	default:
		return ""
	}
}

// ParseEntityRef разбирает текстовую форму ссылки
func ParseEntityRef(raw string) (EntityRef, error) {
	kind, key, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return EntityRef{}, fmt.Errorf("неверная ссылка %q", raw)
	}
	id, err := uuid.Parse(key)
	if err != nil {
		return EntityRef{}, fmt.Errorf("неверная ссылка %q: %w", raw, err)
	}
	switch kind {
	case "saved":
		return SavedRef(id), nil
	case "draft":
		return EntityRef{kind: refDraft, key: id}, nil
	default:
		return EntityRef{}, fmt.Errorf("неизвестный вид ссылки %q", kind)
	}
}

func (r EntityRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *EntityRef) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = EntityRef{}
		return nil
	}
	parsed, err := ParseEntityRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
