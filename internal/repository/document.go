package repository

import (
    "bytes"
    "encoding/json"
    "errors"
    "fmt"
    "io"
)

// Document is the whole store: patient id -> stored record JSON.  Unlike a
// Go map it remembers key order, so listing and sorting follow the order
// records appear in the backing file.  New ids are appended; replacing an
// existing id keeps its position.
type Document struct {
    ids     []string
    records map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
    return &Document{records: map[string]json.RawMessage{}}
}

// ParseDocument decodes a JSON object into a Document, preserving key order.
func ParseDocument(data []byte) (*Document, error) {
    d := NewDocument()
    dec := json.NewDecoder(bytes.NewReader(data))
    tok, err := dec.Token()
    if err != nil {
        return nil, err
    }
    if delim, ok := tok.(json.Delim); !ok || delim != '{' {
        return nil, errors.New("store document must be a JSON object")
    }
    for dec.More() {
        tok, err := dec.Token()
        if err != nil {
            return nil, err
        }
        id, ok := tok.(string)
        if !ok {
            return nil, fmt.Errorf("unexpected key %v", tok)
        }
        var raw json.RawMessage
        if err := dec.Decode(&raw); err != nil {
            return nil, fmt.Errorf("record %q: %w", id, err)
        }
        d.Set(id, raw)
    }
    if _, err := dec.Token(); err != nil { // closing brace
        return nil, err
    }
    if _, err := dec.Token(); err != io.EOF {
        return nil, errors.New("trailing data after store document")
    }
    return d, nil
}

// Len returns the number of records.
func (d *Document) Len() int { return len(d.ids) }

// Has reports whether id is present.
func (d *Document) Has(id string) bool {
    _, ok := d.records[id]
    return ok
}

// Get returns the stored JSON for id.
func (d *Document) Get(id string) (json.RawMessage, bool) {
    raw, ok := d.records[id]
    return raw, ok
}

// Set inserts or replaces the record for id.
func (d *Document) Set(id string, raw json.RawMessage) {
    if _, ok := d.records[id]; !ok {
        d.ids = append(d.ids, id)
    }
    d.records[id] = raw
}

// Delete removes id and reports whether it was present.
func (d *Document) Delete(id string) bool {
    if _, ok := d.records[id]; !ok {
        return false
    }
    delete(d.records, id)
    for i, v := range d.ids {
        if v == id {
            d.ids = append(d.ids[:i], d.ids[i+1:]...)
            break
        }
    }
    return true
}

// IDs returns the ids in document order.
func (d *Document) IDs() []string {
    out := make([]string, len(d.ids))
    copy(out, d.ids)
    return out
}

// Values returns the records in document order.
func (d *Document) Values() []json.RawMessage {
    out := make([]json.RawMessage, 0, len(d.ids))
    for _, id := range d.ids {
        out = append(out, d.records[id])
    }
    return out
}

// MarshalJSON writes the document as a single JSON object in key order.
func (d *Document) MarshalJSON() ([]byte, error) {
    var buf bytes.Buffer
    buf.WriteByte('{')
    for i, id := range d.ids {
        if i > 0 {
            buf.WriteByte(',')
        }
        key, err := json.Marshal(id)
        if err != nil {
            return nil, err
        }
        buf.Write(key)
        buf.WriteByte(':')
        buf.Write(d.records[id])
    }
    buf.WriteByte('}')
    return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler via ParseDocument.
func (d *Document) UnmarshalJSON(data []byte) error {
    parsed, err := ParseDocument(data)
    if err != nil {
        return err
    }
    *d = *parsed
    return nil
}
