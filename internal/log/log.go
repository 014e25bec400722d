// Package log writes one JSON object per line through the standard logger,
// so whatever log.SetOutput points at (stdout, LOG_FILE) receives it.
package log

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"backoffice/internal/domain"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Operator  bool           `json:"operator,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// field values that are never written verbatim
var secret = map[string]bool{"password": true, "sid": true, "token": true}

func scrub(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !secret[k] {
			out[k] = v
			continue
		}
		if s, ok := v.(string); ok && len(s) > 8 && k == "sid" {
			out[k] = s[:8] + "..."
			continue
		}
		out[k] = "[redacted]"
	}
	return out
}

// c may be nil for logs emitted outside a request (services, CLI).
func newEntry(level string, c *fiber.Ctx, action string, err error, fields map[string]any) entry {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action, Fields: scrub(fields)}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
		if a, ok := c.Locals("actor").(domain.Actor); ok {
			e.UserID = a.MemberID
			e.Operator = a.Elevated()
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	return e
}

func emit(e entry) {
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	emit(newEntry("info", c, action, nil, fields))
}
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	emit(newEntry("audit", c, action, nil, fields))
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	emit(newEntry("warn", c, action, nil, fields))
}

// Warn records a failure that was recovered locally.
func Warn(c *fiber.Ctx, action string, err error, fields map[string]any) {
	emit(newEntry("warn", c, action, err, fields))
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	emit(newEntry("error", c, action, err, fields))
}

// Requests is the access log middleware: one "http.request" line per
// request with final status and latency. Chain errors go through the app's
// ErrorHandler first so the logged status is the one the client saw.
func Requests() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		e := newEntry("info", c, "http.request", nil, nil)
		e.LatencyMs = time.Since(start).Milliseconds()
		emit(e)
		return nil
	}
}
