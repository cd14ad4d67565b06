package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/patient-records/internal/model"
)

func TestAppendAudit(t *testing.T) {
    path := filepath.Join(t.TempDir(), "logs", "audit.log")

    created, err := json.Marshal(PatientEvent{
        Type:       EventPatientCreated,
        PatientID:  "P001",
        Patient:    &model.Record{Name: "Ana", Age: 30, BMI: 22.86, Verdict: model.VerdictNormalWeight},
        RequestID:  "req-1",
        OccurredAt: "2026-01-02T03:04:05Z",
    })
    require.NoError(t, err)
    deleted, err := json.Marshal(PatientEvent{Type: EventPatientDeleted, PatientID: "P001", OccurredAt: "2026-01-02T03:05:00Z"})
    require.NoError(t, err)

    require.NoError(t, AppendAudit(path, created))
    require.NoError(t, AppendAudit(path, deleted))

    data, err := os.ReadFile(path)
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    assert.Equal(t, `[2026-01-02T03:04:05Z] patient.created | patient_id=P001 | name="Ana" | age=30 | bmi=22.86 | verdict="Normal weight" | request_id=req-1`, lines[0])
    assert.Equal(t, `[2026-01-02T03:05:00Z] patient.deleted | patient_id=P001`, lines[1])
}

func TestAppendAuditRejectsBadMessages(t *testing.T) {
    path := filepath.Join(t.TempDir(), "audit.log")
    assert.Error(t, AppendAudit(path, []byte("{")))
    assert.Error(t, AppendAudit(path, []byte(`{"type":"patient.created"}`)))

    _, err := os.Stat(path)
    assert.True(t, os.IsNotExist(err), "nothing written for rejected messages")
}
