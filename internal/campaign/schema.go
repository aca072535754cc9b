package campaign

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgRequired        = "Required"
	msgNameRequired    = "Campaign name is required"
	msgInvalidTemplate = "Invalid template ID"
	msgInvalidUUID     = "Invalid uuid"
	msgNoRecipients    = "At least one contact or segment must be specified."
	msgInvalidDateTime = "Invalid schedule date/time"
)

// Violation is a single rule breach. Path uses the JSON field names, e.g.
// "sendTo.contacts[2]". The empty path denotes the whole value.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Path == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Path+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Messages returns the messages recorded for path, in order.
func (e *ValidationError) Messages(path string) []string {
	var out []string
	for _, v := range e.Violations {
		if v.Path == path {
			out = append(out, v.Message)
		}
	}
	return out
}

var validate = newValidator()

var isoDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("uuid_text", func(fl validator.FieldLevel) bool {
		return IsUUID(fl.Field().String())
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		return IsISODateTime(fl.Field().String())
	})
	return v
}

// IsUUID reports whether s is a UUID in the canonical 8-4-4-4-12 hex form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsISODateTime reports whether s is a UTC ISO-8601 date-time such as
// 2025-10-02T12:00:00Z or 2025-10-02T12:00:00.123Z.
func IsISODateTime(s string) bool {
	if !isoDateTime.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// Validate checks d against every rule and returns the normalized request, or
// a *ValidationError listing all violations. d is not modified.
func Validate(d Draft) (SendRequest, error) {
	return validateDraft(d, nil, nil)
}

// ValidateJSON decodes an arbitrary JSON value and validates it. Fields of the
// wrong JSON type are reported as such and skip the rules that depend on them.
func ValidateJSON(data []byte) (SendRequest, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return SendRequest{}, &ValidationError{Violations: []Violation{{Message: "Invalid JSON: " + err.Error()}}}
	}
	dec := &decoder{skip: map[string]bool{}}
	d := dec.draft(raw)
	return validateDraft(d, dec.violations, dec.skip)
}

func validateDraft(d Draft, pre []Violation, skip map[string]bool) (SendRequest, error) {
	violations := append([]Violation(nil), pre...)

	if err := validate.Struct(d); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return SendRequest{}, &ValidationError{Violations: append(violations, Violation{Message: err.Error()})}
		}
		for _, fe := range fieldErrs {
			path := fieldPath(fe.Namespace())
			if skipped(skip, path) {
				continue
			}
			violations = append(violations, Violation{Path: path, Message: messageFor(fe.Tag(), path)})
		}
	}

	if !skip["sendTo"] && countUUIDs(d.SendTo.Contacts)+countUUIDs(d.SendTo.Segments) == 0 {
		violations = append(violations, Violation{Path: "sendTo", Message: msgNoRecipients})
	}

	if len(violations) > 0 {
		return SendRequest{}, &ValidationError{Violations: violations}
	}
	return normalize(d), nil
}

func normalize(d Draft) SendRequest {
	req := SendRequest{
		CampaignName: *d.CampaignName,
		TemplateID:   *d.TemplateID,
		SendTo: Recipients{
			Contacts: append([]string{}, d.SendTo.Contacts...),
			Segments: append([]string{}, d.SendTo.Segments...),
		},
	}
	if d.Schedule != nil {
		req.Schedule = &Schedule{DateTime: *d.Schedule.DateTime}
		if d.Schedule.Cron != nil {
			req.Schedule.Cron = *d.Schedule.Cron
		}
	}
	return req
}

func countUUIDs(ids []string) int {
	n := 0
	for _, id := range ids {
		if IsUUID(id) {
			n++
		}
	}
	return n
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func skipped(skip map[string]bool, path string) bool {
	for p := range skip {
		if path == p || strings.HasPrefix(path, p+".") || strings.HasPrefix(path, p+"[") {
			return true
		}
	}
	return false
}

func messageFor(tag, path string) string {
	switch tag {
	case "required":
		return msgRequired
	case "min":
		return msgNameRequired
	case "uuid_text":
		if path == "templateId" {
			return msgInvalidTemplate
		}
		return msgInvalidUUID
	case "iso8601":
		return msgInvalidDateTime
	}
	return fmt.Sprintf("failed %s", tag)
}

// decoder turns a loosely typed JSON value into a Draft, recording a
// violation for every field whose JSON type is wrong.
type decoder struct {
	violations []Violation
	skip       map[string]bool
}

func (dec *decoder) mismatch(path, want string, got any) {
	dec.violations = append(dec.violations, Violation{
		Path:    path,
		Message: fmt.Sprintf("Expected %s, received %s", want, jsonType(got)),
	})
	dec.skip[path] = true
}

func (dec *decoder) draft(raw any) Draft {
	var d Draft
	obj, ok := raw.(map[string]any)
	if !ok {
		dec.mismatch("", "object", raw)
		// nothing below the root can be checked
		dec.skip["campaignName"] = true
		dec.skip["templateId"] = true
		dec.skip["sendTo"] = true
		return d
	}

	d.CampaignName = dec.str(obj, "campaignName", "campaignName")
	d.TemplateID = dec.str(obj, "templateId", "templateId")

	if v, present := obj["sendTo"]; present {
		if to, ok := v.(map[string]any); ok {
			d.SendTo.Contacts = dec.list(to, "contacts", "sendTo.contacts")
			d.SendTo.Segments = dec.list(to, "segments", "sendTo.segments")
		} else {
			dec.mismatch("sendTo", "object", v)
		}
	}

	if v, present := obj["schedule"]; present {
		if s, ok := v.(map[string]any); ok {
			d.Schedule = &ScheduleDraft{
				DateTime: dec.str(s, "dateTime", "schedule.dateTime"),
				Cron:     dec.str(s, "cron", "schedule.cron"),
			}
		} else {
			dec.mismatch("schedule", "object", v)
		}
	}
	return d
}

func (dec *decoder) str(obj map[string]any, key, path string) *string {
	v, present := obj[key]
	if !present {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		dec.mismatch(path, "string", v)
		return nil
	}
	return &s
}

func (dec *decoder) list(obj map[string]any, key, path string) []string {
	v, present := obj[key]
	if !present {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		dec.mismatch(path, "array", v)
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			// keep the slot so later indices still line up
			dec.mismatch(fmt.Sprintf("%s[%d]", path, i), "string", item)
			continue
		}
		out[i] = s
	}
	return out
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
