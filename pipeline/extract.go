package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/cwillim/taskdeck/store"
)

// Classification is a proposed new task extracted from model output.
// Priority and Status are empty when absent or invalid; creation applies
// the store defaults (P1 / BACKLOG). Estimate and block type carry the
// documented defaults when the model omits them.
type Classification struct {
	Title               string          `json:"title"`
	Priority            store.Priority  `json:"priority,omitempty"`
	Status              store.Status    `json:"status,omitempty"`
	ContextTags         []string        `json:"contextTags,omitempty"`
	TimeEstimateMinutes int             `json:"timeEstimateMinutes"`
	BlockType           store.BlockType `json:"blockType"`
	ProjectSuggestion   string          `json:"projectSuggestion,omitempty"`
	Reasoning           string          `json:"reasoning,omitempty"`
}

// TaskUpdate is a directive to modify an existing task. Nil pointer
// fields were absent (or carried an invalid enum value) in the source
// block and must not be touched.
type TaskUpdate struct {
	TaskID            string
	Title             *string
	Priority          *store.Priority
	Status            *store.Status
	DueDate           *string
	ContextTags       []string // nil = absent
	ProjectSuggestion *string
}

// Knowledge action tags.
const (
	KnowledgeCreate = "create"
	KnowledgeUpdate = "update"
)

// KnowledgeAction is a directive to create or update a knowledge entry.
type KnowledgeAction struct {
	Action  string
	ID      string
	Title   string
	Content string
	Tags    []string // nil = absent (update keeps existing tags)
}

// Bundle is the full set of proposed mutations extracted from one model
// response. Any subset of members may be empty; an entirely empty bundle
// means "no actions".
type Bundle struct {
	Classification   *Classification
	TaskUpdates      []TaskUpdate
	KnowledgeActions []KnowledgeAction
}

// Empty reports whether the bundle proposes no mutations at all.
func (b Bundle) Empty() bool {
	return b.Classification == nil && len(b.TaskUpdates) == 0 && len(b.KnowledgeActions) == 0
}

const fenceMarker = "```json"

// Extract parses the structured action block embedded in free-form model
// output. Missing fence, unbalanced braces, or invalid JSON all yield an
// empty bundle; a malformed member invalidates only that member. Only
// the first fenced block is considered.
func Extract(text string) Bundle {
	raw, ok := locateBlock(text)
	if !ok {
		return Bundle{}
	}

	var envelope struct {
		Classification   json.RawMessage `json:"classification"`
		TaskUpdates      json.RawMessage `json:"taskUpdates"`
		KnowledgeActions json.RawMessage `json:"knowledgeActions"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return Bundle{}
	}

	return Bundle{
		Classification:   decodeClassification(envelope.Classification),
		TaskUpdates:      decodeTaskUpdates(envelope.TaskUpdates),
		KnowledgeActions: decodeKnowledgeActions(envelope.KnowledgeActions),
	}
}

// TimeBlockPlan is one proposed slot from the schedule-generation flow.
type TimeBlockPlan struct {
	StartTime string          `json:"startTime"`
	EndTime   string          `json:"endTime"`
	TaskID    string          `json:"taskId"`
	BlockType store.BlockType `json:"blockType"`
	Label     string          `json:"label"`
}

// ExtractSchedule parses the timeBlocks member of a fenced block, used
// by the non-streaming schedule-generation flow. Returns nil when no
// valid block exists.
func ExtractSchedule(text string) []TimeBlockPlan {
	raw, ok := locateBlock(text)
	if !ok {
		return nil
	}

	var envelope struct {
		TimeBlocks []struct {
			StartTime string  `json:"startTime"`
			EndTime   string  `json:"endTime"`
			TaskID    *string `json:"taskId"`
			BlockType string  `json:"blockType"`
			Label     string  `json:"label"`
		} `json:"timeBlocks"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil
	}

	var plans []TimeBlockPlan
	for _, b := range envelope.TimeBlocks {
		if b.StartTime == "" || b.EndTime == "" {
			continue
		}
		p := TimeBlockPlan{
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			BlockType: store.BlockType(b.BlockType),
			Label:     b.Label,
		}
		if b.TaskID != nil {
			p.TaskID = *b.TaskID
		}
		switch p.BlockType {
		case store.BlockDeep, store.BlockShallow, store.BlockBreak:
		default:
			p.BlockType = store.BlockDeep
		}
		plans = append(plans, p)
	}
	return plans
}

// locateBlock finds the first ```json fence and returns the balanced
// JSON object that starts at the first '{' after the marker's line.
//
// The scan tracks brace depth together with an inside-string flag and
// backslash escapes, counting braces only outside string values. A
// regex bounded by the closing fence would mis-slice objects whose
// string values contain '}' or fence-like substrings.
func locateBlock(text string) (string, bool) {
	idx := strings.Index(text, fenceMarker)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(fenceMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}

	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[start : i+1], true
			}
		}
	}
	return "", false
}

func decodeClassification(raw json.RawMessage) *Classification {
	if len(raw) == 0 {
		return nil
	}
	var c struct {
		Title               string   `json:"title"`
		Priority            string   `json:"priority"`
		Status              string   `json:"status"`
		ContextTags         []string `json:"contextTags"`
		TimeEstimateMinutes *int     `json:"timeEstimateMinutes"`
		BlockType           string   `json:"blockType"`
		ProjectSuggestion   string   `json:"projectSuggestion"`
		Reasoning           string   `json:"reasoning"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	if strings.TrimSpace(c.Title) == "" {
		return nil
	}

	out := &Classification{
		Title:               strings.TrimSpace(c.Title),
		ContextTags:         c.ContextTags,
		TimeEstimateMinutes: 60,
		BlockType:           store.BlockDeep,
		ProjectSuggestion:   c.ProjectSuggestion,
		Reasoning:           c.Reasoning,
	}
	if p := store.Priority(c.Priority); store.ValidPriority(p) {
		out.Priority = p
	}
	if s := store.Status(c.Status); store.ValidStatus(s) {
		out.Status = s
	}
	if c.TimeEstimateMinutes != nil && *c.TimeEstimateMinutes >= 0 && *c.TimeEstimateMinutes <= 1440 {
		out.TimeEstimateMinutes = *c.TimeEstimateMinutes
	}
	if b := store.BlockType(c.BlockType); store.ValidBlockType(b) {
		out.BlockType = b
	}
	return out
}

func decodeTaskUpdates(raw json.RawMessage) []TaskUpdate {
	if len(raw) == 0 {
		return nil
	}
	var entries []struct {
		TaskID            string    `json:"taskId"`
		Title             *string   `json:"title"`
		Priority          *string   `json:"priority"`
		Status            *string   `json:"status"`
		DueDate           *string   `json:"dueDate"`
		ContextTags       *[]string `json:"contextTags"`
		ProjectSuggestion *string   `json:"projectSuggestion"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var updates []TaskUpdate
	for _, e := range entries {
		if strings.TrimSpace(e.TaskID) == "" {
			continue
		}
		u := TaskUpdate{
			TaskID:            strings.TrimSpace(e.TaskID),
			Title:             e.Title,
			DueDate:           e.DueDate,
			ProjectSuggestion: e.ProjectSuggestion,
		}
		// Invalid enum values drop the field, not the directive.
		if e.Priority != nil {
			if p := store.Priority(*e.Priority); store.ValidPriority(p) {
				u.Priority = &p
			}
		}
		if e.Status != nil {
			if s := store.Status(*e.Status); store.ValidStatus(s) {
				u.Status = &s
			}
		}
		if e.ContextTags != nil {
			u.ContextTags = *e.ContextTags
			if u.ContextTags == nil {
				u.ContextTags = []string{}
			}
		}
		updates = append(updates, u)
	}
	return updates
}

func decodeKnowledgeActions(raw json.RawMessage) []KnowledgeAction {
	if len(raw) == 0 {
		return nil
	}
	var entries []struct {
		Action  string   `json:"action"`
		ID      string   `json:"id"`
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var actions []KnowledgeAction
	for _, e := range entries {
		a := KnowledgeAction{
			Action:  e.Action,
			ID:      strings.TrimSpace(e.ID),
			Title:   strings.TrimSpace(e.Title),
			Content: e.Content,
			Tags:    e.Tags,
		}
		switch a.Action {
		case KnowledgeCreate:
			if a.Title == "" || a.Content == "" {
				continue
			}
		case KnowledgeUpdate:
			if a.ID == "" {
				continue
			}
			if a.Title == "" && a.Content == "" && a.Tags == nil {
				continue
			}
		default:
			continue
		}
		actions = append(actions, a)
	}
	return actions
}
