package middleware

import (
    "context"
    "log/slog"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger logs one structured line per request: method, uri, route,
// status, latency and request id.  5xx responses log at error level, 4xx at
// warn and everything else at info.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogRoutePath: true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true, // run the error handler so the logged status is final
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            level := slog.LevelInfo
            switch {
            case v.Status >= 500:
                level = slog.LevelError
            case v.Status >= 400:
                level = slog.LevelWarn
            }
            attrs := []slog.Attr{
                slog.String("method", v.Method),
                slog.String("uri", v.URI),
                slog.String("route", v.RoutePath),
                slog.Int("status", v.Status),
                slog.Int64("latency_ms", v.Latency.Milliseconds()),
                slog.String("request_id", v.RequestID),
                slog.String("remote_ip", v.RemoteIP),
            }
            if v.Error != nil {
                attrs = append(attrs, slog.String("error", v.Error.Error()))
            }
            logger.LogAttrs(context.Background(), level, "http request", attrs...)
            return nil
        },
    })
}
