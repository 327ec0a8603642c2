// Package log writes one JSON object per line through the standard logger so
// LOG_FILE tee-ing in main keeps working for every component.
package log

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func write(level string, c *fiber.Ctx, action string, latency time.Duration, err error, fields map[string]any) {
	e := entry{
		TS:        time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Action:    action,
		LatencyMs: latency.Milliseconds(),
		Fields:    fields,
	}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

// c may be nil for events outside a request (pool, orchestrator).
func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, 0, nil, fields) }

func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, 0, nil, fields)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, 0, nil, fields)
}

func Warn(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("warn", c, action, 0, err, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, 0, err, fields)
}

// Timed records an event together with how long it took.
func Timed(c *fiber.Ctx, action string, latency time.Duration, err error, fields map[string]any) {
	level := "info"
	if err != nil {
		level = "error"
	}
	write(level, c, action, latency, err, fields)
}
