package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

func (h *structuredHandler) encode(f fields) ([]byte, error) {
	keys := orderedKeys(f, h.cfg.keyOrder)
	switch h.cfg.format {
	case formatJSON:
		return encodeJSON(f, keys)
	case formatLine:
		return encodeLine(f, keys), nil
	default:
		return encodeKV(f, keys), nil
	}
}

// orderedKeys returns the keys of f listed in order first, then the rest sorted.
func orderedKeys(f fields, order []string) []string {
	keys := make([]string, 0, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	head := len(keys)
	for k := range f {
		if !slices.Contains(keys[:head], k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[head:])
	return keys
}

func encodeJSON(f fields, keys []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %q: %w", k, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeKV(f fields, keys []string) []byte {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		writePair(&b, k, f[k])
	}
	return []byte(b.String())
}

// lineHeader holds the keys rendered in the fixed prefix of the line format.
var lineHeader = []string{"source", "level", "ts", "ts_unix_nano", "component", "msg"}

func encodeLine(f fields, keys []string) []byte {
	source := f.str("source")
	if source == "" {
		source = "???:0"
	}
	message := f.str("msg")
	eventInHeader := message == ""
	if eventInHeader {
		message = f.str("event")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s #%-8s [%s] - %s - %s", source, f.str("level"), f.str("ts"), f.str("component"), message)
	for _, k := range keys {
		if slices.Contains(lineHeader, k) || k == "event" && eventInHeader {
			continue
		}
		b.WriteByte(' ')
		writePair(&b, k, f[k])
	}
	return []byte(b.String())
}

func writePair(b *strings.Builder, key string, v any) {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		s = strconv.Quote(s)
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(s)
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
