// Package handler defines HTTP handlers for the patient API.  This file holds
// the response shapes shared by every handler and the translation of errors
// into {"detail": ...} bodies.
package handler

import (
    "encoding/json"
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/patient-records/internal/model"
)

// messageResponse is the {"message": ...} body used by info and delete routes.
type messageResponse struct {
    Message string `json:"message"`
}

// patientResponse is returned by create and update.
type patientResponse struct {
    Message string       `json:"message"`
    Patient model.Record `json:"patient"`
}

// detailResponse carries a single error message.
type detailResponse struct {
    Detail string `json:"detail"`
}

// validationDetail is one entry of a 422 response.  Loc is the path to the
// offending value, e.g. ["body", "age"] or ["query", "sort_by"].
type validationDetail struct {
    Type  string          `json:"type"`
    Loc   []any           `json:"loc"`
    Msg   string          `json:"msg"`
    Input json.RawMessage `json:"input,omitempty"`
}

type validationResponse struct {
    Detail []validationDetail `json:"detail"`
}

func detail(c echo.Context, status int, msg string) error {
    return c.JSON(status, detailResponse{Detail: msg})
}

// unprocessable writes a 422 listing every field in verr under location loc.
func unprocessable(c echo.Context, loc string, verr *model.ValidationError) error {
    out := make([]validationDetail, 0, len(verr.Fields))
    for _, f := range verr.Fields {
        out = append(out, validationDetail{Type: f.Type, Loc: []any{loc, f.Field}, Msg: f.Msg, Input: f.Input})
    }
    return c.JSON(http.StatusUnprocessableEntity, validationResponse{Detail: out})
}

// invalidBody writes the 422 for a body that is absent, not JSON, or not an
// object.
func invalidBody(c echo.Context, body []byte) error {
    var d validationDetail
    switch {
    case len(body) == 0:
        d = validationDetail{Type: "missing", Loc: []any{"body"}, Msg: "Field required"}
    case json.Valid(body):
        d = validationDetail{Type: "model_attributes_type", Loc: []any{"body"}, Msg: "Input should be a valid dictionary or object to extract fields from", Input: body}
    default:
        d = validationDetail{Type: "json_invalid", Loc: []any{"body", 0}, Msg: "JSON decode error"}
    }
    return c.JSON(http.StatusUnprocessableEntity, validationResponse{Detail: []validationDetail{d}})
}

// ErrorHandler renders errors that escape handlers and middleware (unknown
// routes, wrong methods, panics turned into errors by Recover) with the same
// {"detail": ...} shape the handlers use.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status := http.StatusInternalServerError
        msg := http.StatusText(status)
        var he *echo.HTTPError
        if errors.As(err, &he) {
            status = he.Code
            if m, ok := he.Message.(string); ok {
                msg = m
            } else {
                msg = http.StatusText(status)
            }
        } else {
            logger.Error("unhandled error", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
        }

        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(status)
        } else {
            werr = detail(c, status, msg)
        }
        if werr != nil {
            logger.Error("write error response", "error", werr)
        }
    }
}
