package handler

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "net/url"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/patient-records/internal/metrics"
    "github.com/iliyamo/patient-records/internal/model"
    "github.com/iliyamo/patient-records/internal/queue"
    "github.com/iliyamo/patient-records/internal/repository"
    "github.com/iliyamo/patient-records/internal/service"
)

// maxBodyBytes bounds request bodies on create and update.
const maxBodyBytes = 1 << 20

// PatientHandler bundles the dependencies of the patient endpoints.
type PatientHandler struct {
    Patients *repository.PatientRepo // Patients performs load/mutate/save against the store
    Events   service.EventPublisher  // Events receives created/updated/deleted notifications
    Metrics  *metrics.Metrics        // Metrics counts mutation outcomes
    Logger   *slog.Logger
}

// NewPatientHandler constructs a PatientHandler and panics if the repository
// is nil.  A nil publisher drops events and a nil logger uses slog.Default.
func NewPatientHandler(patients *repository.PatientRepo, events service.EventPublisher, m *metrics.Metrics, logger *slog.Logger) *PatientHandler {
    if patients == nil {
        panic("nil repository passed to NewPatientHandler")
    }
    if events == nil {
        events = service.NopPublisher{}
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &PatientHandler{Patients: patients, Events: events, Metrics: m, Logger: logger}
}

// ListPatients handles GET /view and returns the whole store as stored.
func (h *PatientHandler) ListPatients(c echo.Context) error {
    doc, err := h.Patients.List(c.Request().Context())
    if err != nil {
        return h.storageFailure(c, err)
    }
    return c.JSON(http.StatusOK, doc)
}

// GetPatient handles GET /view/:id.
func (h *PatientHandler) GetPatient(c echo.Context) error {
    raw, err := h.Patients.Get(c.Request().Context(), c.Param("id"))
    if err != nil {
        if errors.Is(err, repository.ErrPatientNotFound) {
            return detail(c, http.StatusNotFound, "Patient not found")
        }
        return h.storageFailure(c, err)
    }
    return c.JSON(http.StatusOK, raw)
}

// SortPatients handles GET /sort?sort_by=height|weight&order=asc|desc.  It
// returns the record values (ids dropped) ordered by the field; order
// defaults to asc.
func (h *PatientHandler) SortPatients(c echo.Context) error {
    params := c.QueryParams()
    sortBy, ok := lastValue(params, "sort_by")
    if !ok {
        return c.JSON(http.StatusUnprocessableEntity, validationResponse{Detail: []validationDetail{{
            Type: "missing", Loc: []any{"query", "sort_by"}, Msg: "Field required",
        }}})
    }
    field, ok := repository.ParseSortField(sortBy)
    if !ok {
        return detail(c, http.StatusBadRequest, "invalid field select from ['height', 'weight']")
    }
    order, ok := lastValue(params, "order")
    if !ok {
        order = "asc"
    }
    if order != "asc" && order != "desc" {
        return detail(c, http.StatusBadRequest, "Order must be 'asc' or 'desc'")
    }

    values, err := h.Patients.Sorted(c.Request().Context(), field, order == "desc")
    if err != nil {
        return h.storageFailure(c, err)
    }
    return c.JSON(http.StatusOK, values)
}

// lastValue returns the last occurrence of a repeated query parameter.
func lastValue(params url.Values, name string) (string, bool) {
    vs := params[name]
    if len(vs) == 0 {
        return "", false
    }
    return vs[len(vs)-1], true
}

// CreatePatient handles POST /create.  The body must carry every field,
// including id.  Field validation runs before the store is read, so an
// invalid body is a 422 even when the id is taken.
func (h *PatientHandler) CreatePatient(c echo.Context) error {
    fields, body, err := readFields(c)
    if err != nil {
        return h.rejectBody(c, "create", body, err)
    }
    p, err := model.ParsePatient(fields)
    if err != nil {
        h.observe("create", metrics.OutcomeInvalid)
        return h.validationFailure(c, err)
    }

    rec, err := h.Patients.Create(c.Request().Context(), p)
    if err != nil {
        if errors.Is(err, repository.ErrDuplicateID) {
            h.observe("create", metrics.OutcomeConflict)
            return detail(c, http.StatusBadRequest, "Patient with this ID already exists")
        }
        h.observe("create", metrics.OutcomeError)
        return h.storageFailure(c, err)
    }
    h.observe("create", metrics.OutcomeOK)
    h.publish(c, queue.EventPatientCreated, p.ID, &rec)
    return c.JSON(http.StatusCreated, patientResponse{Message: "Patient created successfully", Patient: rec})
}

// UpdatePatient handles PUT /edit/:id.  Any subset of name, city, age,
// gender, height and weight may be sent; each is validated on its own, then
// merged onto the stored record and the result is validated as a whole.
func (h *PatientHandler) UpdatePatient(c echo.Context) error {
    id := c.Param("id")
    fields, body, err := readFields(c)
    if err != nil {
        return h.rejectBody(c, "update", body, err)
    }
    changes, err := model.ParseUpdate(fields)
    if err != nil {
        h.observe("update", metrics.OutcomeInvalid)
        return h.validationFailure(c, err)
    }

    rec, err := h.Patients.Update(c.Request().Context(), id, changes)
    if err != nil {
        var verr *model.ValidationError
        switch {
        case errors.Is(err, repository.ErrPatientNotFound):
            h.observe("update", metrics.OutcomeNotFound)
            return detail(c, http.StatusNotFound, "Patient not found")
        case errors.As(err, &verr):
            h.observe("update", metrics.OutcomeInvalid)
            return unprocessable(c, "body", verr)
        default:
            h.observe("update", metrics.OutcomeError)
            return h.storageFailure(c, err)
        }
    }
    h.observe("update", metrics.OutcomeOK)
    h.publish(c, queue.EventPatientUpdated, id, &rec)
    return c.JSON(http.StatusOK, patientResponse{Message: "Patient updated successfully", Patient: rec})
}

// DeletePatient handles DELETE /delete/:id.
func (h *PatientHandler) DeletePatient(c echo.Context) error {
    id := c.Param("id")
    if err := h.Patients.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, repository.ErrPatientNotFound) {
            h.observe("delete", metrics.OutcomeNotFound)
            return detail(c, http.StatusNotFound, "Patient not found")
        }
        h.observe("delete", metrics.OutcomeError)
        return h.storageFailure(c, err)
    }
    h.observe("delete", metrics.OutcomeOK)
    h.publish(c, queue.EventPatientDeleted, id, nil)
    return c.JSON(http.StatusOK, messageResponse{Message: "Patient deleted successfully"})
}

var errBodyTooLarge = errors.New("request body too large")

// readFields reads the request body, at most maxBodyBytes of it, and decodes
// it as a JSON object.  The raw body is returned so the caller can describe
// why decoding failed.
func readFields(c echo.Context) (model.Fields, []byte, error) {
    body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxBodyBytes))
    if err != nil {
        var tooLarge *http.MaxBytesError
        if errors.As(err, &tooLarge) {
            return nil, nil, errBodyTooLarge
        }
        return nil, nil, err
    }
    fields, err := model.DecodeFields(body)
    if err != nil {
        return nil, body, err
    }
    return fields, body, nil
}

// rejectBody answers a body that could not be read or decoded: 413 when it
// is over the limit, 422 otherwise.
func (h *PatientHandler) rejectBody(c echo.Context, op string, body []byte, err error) error {
    h.observe(op, metrics.OutcomeInvalid)
    if errors.Is(err, errBodyTooLarge) {
        return detail(c, http.StatusRequestEntityTooLarge, "Request body too large")
    }
    return invalidBody(c, body)
}

func (h *PatientHandler) validationFailure(c echo.Context, err error) error {
    var verr *model.ValidationError
    if errors.As(err, &verr) {
        return unprocessable(c, "body", verr)
    }
    return h.storageFailure(c, err)
}

// storageFailure logs err and answers 500 without leaking its text.
func (h *PatientHandler) storageFailure(c echo.Context, err error) error {
    h.Logger.Error("patient store failure",
        "method", c.Request().Method,
        "uri", c.Request().RequestURI,
        "request_id", c.Response().Header().Get(echo.HeaderXRequestID),
        "error", err,
    )
    return detail(c, http.StatusInternalServerError, "Internal Server Error")
}

func (h *PatientHandler) observe(op, outcome string) {
    if h.Metrics != nil {
        h.Metrics.ObserveMutation(op, outcome)
    }
}

// publish emits a patient event after a successful mutation.  Failures are
// logged and counted; the response is not affected.
func (h *PatientHandler) publish(c echo.Context, eventType, id string, rec *model.Record) {
    if _, disabled := h.Events.(service.NopPublisher); disabled {
        return
    }
    ev := queue.PatientEvent{
        Type:       eventType,
        PatientID:  id,
        Patient:    rec,
        RequestID:  c.Response().Header().Get(echo.HeaderXRequestID),
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 3*time.Second)
    defer cancel()
    err := h.Events.Publish(ctx, ev)
    if err != nil {
        h.Logger.Warn("publish patient event failed", "type", eventType, "patient_id", id, "error", err)
    }
    if h.Metrics != nil {
        h.Metrics.ObserveEvent(eventType, err)
    }
}
