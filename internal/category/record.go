package category

import (
	"encoding/json"
	"fmt"
)

// Record 是后端返回的一条分类记录。除 id/name/parent_id 之外的字段
// (description、paper_count 等) 原样保存在 Extra 中。
type Record struct {
	ID       uint
	Name     string
	ParentID *uint
	Extra    map[string]json.RawMessage
}

var reservedKeys = map[string]struct{}{
	"id":        {},
	"name":      {},
	"parent_id": {},
	"children":  {},
}

func (r Record) fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	out["id"] = r.ID
	out["name"] = r.Name
	out["parent_id"] = r.ParentID
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var rec Record
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &rec.ID); err != nil {
			return fmt.Errorf("category id: %w", err)
		}
	}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &rec.Name); err != nil {
			return fmt.Errorf("category name: %w", err)
		}
	}
	if v, ok := raw["parent_id"]; ok {
		if err := json.Unmarshal(v, &rec.ParentID); err != nil {
			return fmt.Errorf("category parent_id: %w", err)
		}
		// 0 与 null 一样视为根分类
		if rec.ParentID != nil && *rec.ParentID == 0 {
			rec.ParentID = nil
		}
	}

	for k, v := range raw {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]json.RawMessage)
		}
		rec.Extra[k] = v
	}

	*r = rec
	return nil
}

// ExtraValue decodes one opaque field into dst. It reports false when the
// field is absent.
func (r Record) ExtraValue(key string, dst any) (bool, error) {
	v, ok := r.Extra[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

// NewRecord builds a Record and marshals extra into its opaque fields.
// Untyped nil values in extra are skipped.
func NewRecord(id uint, name string, parentID *uint, extra map[string]any) (Record, error) {
	rec := Record{ID: id, Name: name, ParentID: parentID}
	for k, v := range extra {
		if v == nil {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return Record{}, fmt.Errorf("encode %s: %w", k, err)
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]json.RawMessage, len(extra))
		}
		rec.Extra[k] = b
	}
	return rec, nil
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}
	return out
}

// clone copies r so that no pointer or map is shared with the original.
func (r Record) clone() Record {
	if r.ParentID != nil {
		parent := *r.ParentID
		r.ParentID = &parent
	}
	if r.Extra != nil {
		extra := make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = append(json.RawMessage(nil), v...)
		}
		r.Extra = extra
	}
	return r
}
