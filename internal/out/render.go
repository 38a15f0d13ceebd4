package out

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tradetok/copytrade/internal/config"
	"github.com/tradetok/copytrade/internal/model"
)

func Render(w io.Writer, env model.Envelope, settings config.Settings) error {
	if settings.OutputMode == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	return renderPlain(w, env)
}

// renderPlain flattens the envelope through its JSON form into stable
// key=value lines, one object per line for slices.
func renderPlain(w io.Writer, env model.Envelope) error {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		return err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	if env.Error != nil {
		if _, err := fmt.Fprintf(w, "error code=%d type=%s message=%q\n", env.Error.Code, env.Error.Type, env.Error.Message); err != nil {
			return err
		}
	}

	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if _, err := fmt.Fprintln(w, toLine(item)); err != nil {
				return err
			}
		}
	case nil:
		return nil
	default:
		_, err := fmt.Fprintln(w, toLine(v))
		return err
	}
	return nil
}

func toLine(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", item)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, obj[k]))
	}
	return strings.Join(parts, " ")
}
