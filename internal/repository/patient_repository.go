// Package repository contains data access logic separated from HTTP handlers.
// This file defines PatientRepo, which performs every operation as a full
// load -> mutate -> save cycle against a Store.  There is no locking: two
// concurrent mutations both read the old document and the last save wins.
package repository

import (
    "cmp"
    "context"
    "encoding/json"
    "fmt"
    "slices"

    "github.com/iliyamo/patient-records/internal/model"
)

// SortField names a numeric record field the list can be ordered by.
type SortField string

const (
    SortByHeight SortField = "height"
    SortByWeight SortField = "weight"
)

// SortFields lists the accepted sort fields in the order they are advertised.
var SortFields = []SortField{SortByHeight, SortByWeight}

// ParseSortField converts a query value into a SortField.
func ParseSortField(s string) (SortField, bool) {
    for _, f := range SortFields {
        if string(f) == s {
            return f, true
        }
    }
    return "", false
}

// PatientRepo provides CRUD access to patient records stored in a Store.
type PatientRepo struct {
    store Store // store is the backing document source
}

// NewPatientRepo constructs a PatientRepo over the given store.
func NewPatientRepo(store Store) *PatientRepo {
    return &PatientRepo{store: store}
}

// List returns the whole document exactly as stored.
func (r *PatientRepo) List(ctx context.Context) (*Document, error) {
    return r.store.Load(ctx)
}

// Get returns the stored record for id, or ErrPatientNotFound.
func (r *PatientRepo) Get(ctx context.Context, id string) (json.RawMessage, error) {
    doc, err := r.store.Load(ctx)
    if err != nil {
        return nil, err
    }
    raw, ok := doc.Get(id)
    if !ok {
        return nil, ErrPatientNotFound
    }
    return raw, nil
}

// Sorted returns every record value ordered by field.  The sort is stable in
// both directions, so records with equal keys keep their document order.  A
// record missing the field, or holding a non-numeric value, sorts as 0.
func (r *PatientRepo) Sorted(ctx context.Context, field SortField, desc bool) ([]json.RawMessage, error) {
    doc, err := r.store.Load(ctx)
    if err != nil {
        return nil, err
    }
    type keyed struct {
        key float64
        raw json.RawMessage
    }
    items := make([]keyed, 0, doc.Len())
    for _, raw := range doc.Values() {
        items = append(items, keyed{key: sortKey(raw, field), raw: raw})
    }
    slices.SortStableFunc(items, func(a, b keyed) int {
        if desc {
            return cmp.Compare(b.key, a.key)
        }
        return cmp.Compare(a.key, b.key)
    })
    out := make([]json.RawMessage, len(items))
    for i, it := range items {
        out[i] = it.raw
    }
    return out, nil
}

func sortKey(raw json.RawMessage, field SortField) float64 {
    var rec map[string]json.RawMessage
    if err := json.Unmarshal(raw, &rec); err != nil {
        return 0
    }
    v, ok := rec[string(field)]
    if !ok {
        return 0
    }
    var f float64
    if err := json.Unmarshal(v, &f); err != nil {
        return 0
    }
    return f
}

// Create inserts a validated patient.  It fails with ErrDuplicateID when the
// id is already present.  The stored record, including bmi and verdict, is
// returned.
func (r *PatientRepo) Create(ctx context.Context, p model.Patient) (model.Record, error) {
    doc, err := r.store.Load(ctx)
    if err != nil {
        return model.Record{}, err
    }
    if doc.Has(p.ID) {
        return model.Record{}, ErrDuplicateID
    }
    rec := p.Record()
    raw, err := json.Marshal(rec)
    if err != nil {
        return model.Record{}, err
    }
    doc.Set(p.ID, raw)
    if err := r.store.Save(ctx, doc); err != nil {
        return model.Record{}, err
    }
    return rec, nil
}

// Update merges changes (already checked by model.ParseUpdate) onto the
// stored record, rebuilds the full patient so bmi and verdict are recomputed,
// and saves it.  A merged record that no longer validates yields a
// *model.ValidationError and nothing is written.
func (r *PatientRepo) Update(ctx context.Context, id string, changes model.Fields) (model.Record, error) {
    doc, err := r.store.Load(ctx)
    if err != nil {
        return model.Record{}, err
    }
    raw, ok := doc.Get(id)
    if !ok {
        return model.Record{}, ErrPatientNotFound
    }
    merged, err := model.DecodeFields(raw)
    if err != nil {
        return model.Record{}, &StorageError{Op: "load", Err: fmt.Errorf("record %q: %w", id, err)}
    }
    for k, v := range changes {
        merged[k] = v
    }
    idJSON, err := json.Marshal(id)
    if err != nil {
        return model.Record{}, err
    }
    merged["id"] = idJSON

    p, err := model.ParsePatient(merged)
    if err != nil {
        return model.Record{}, err
    }
    rec := p.Record()
    out, err := json.Marshal(rec)
    if err != nil {
        return model.Record{}, err
    }
    doc.Set(id, out)
    if err := r.store.Save(ctx, doc); err != nil {
        return model.Record{}, err
    }
    return rec, nil
}

// Delete removes the record for id, or returns ErrPatientNotFound.
func (r *PatientRepo) Delete(ctx context.Context, id string) error {
    doc, err := r.store.Load(ctx)
    if err != nil {
        return err
    }
    if !doc.Delete(id) {
        return ErrPatientNotFound
    }
    return r.store.Save(ctx, doc)
}
