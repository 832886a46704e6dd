package comfyui

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// InputPromptTitle is the node title the prompt is written into.
const InputPromptTitle = "Input Prompt"

var ErrPromptNodeMissing = errors.New("comfyui: no node titled \"Input Prompt\" with a text input; rename the prompt node in ComfyUI")

// Workflow is an API-format ComfyUI graph keyed by node id.
type Workflow map[string]map[string]any

// ParseWorkflow decodes the exported workflow JSON.
func ParseWorkflow(raw string) (Workflow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("comfyui: workflow is not configured")
	}
	var wf Workflow
	if err := json.Unmarshal([]byte(raw), &wf); err != nil {
		return nil, fmt.Errorf("comfyui: invalid workflow json: %w", err)
	}
	return wf, nil
}

// InjectPrompt writes prompt into the first node (by node id) whose
// _meta.title is "Input Prompt", ignoring case, and which has inputs.text.
// It returns that node id. The workflow is modified in place.
func (wf Workflow) InjectPrompt(prompt string) (string, error) {
	for _, id := range sortedNodeIDs(wf) {
		node := wf[id]
		meta, _ := node["_meta"].(map[string]any)
		title, _ := meta["title"].(string)
		if !strings.EqualFold(strings.TrimSpace(title), InputPromptTitle) {
			continue
		}
		inputs, ok := node["inputs"].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := inputs["text"]; !ok {
			continue
		}
		inputs["text"] = prompt
		return id, nil
	}
	return "", ErrPromptNodeMissing
}

// sortedNodeIDs orders numeric ids numerically and the rest lexically after them.
func sortedNodeIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}
