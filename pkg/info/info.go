package info

import (
	"strings"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
)

// BuildRequest renders the keys being queried as the Info sub-protocol
// expects: one "key\n" per name, with no trailing blank line (the
// Connection layer's proto header carries the payload length).
func BuildRequest(keys ...string) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('\n')
	}
	return b.String()
}

// Response is a parsed set of key/value pairs from an Info reply.
type Response map[string]string

// ParseResponse splits a raw Info payload into key/value pairs. Each
// line is "key\tvalue" or a bare "key" for a query that had no value;
// parsing tolerates a trailing newline and blank lines but a line with
// an empty key is rejected (spec §4.3: "strict on missing mandatory
// keys").
func ParseResponse(payload []byte) (Response, error) {
	resp := make(Response)
	text := strings.TrimRight(string(payload), "\n")
	if text == "" {
		return resp, nil
	}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, "\t")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, aeroerr.New(aeroerr.Protocol, "info response contains an empty key")
		}
		resp[key] = value
	}
	return resp, nil
}

// Require returns the value for key, or a Protocol error naming the
// missing mandatory key (spec §4.3).
func (r Response) Require(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", aeroerr.Newf(aeroerr.Protocol, "info response missing mandatory key %q", key)
	}
	return v, nil
}

// Fields splits a comma-separated value into its components, trimming
// whitespace around each one. Aerospike info values such as
// "replicas-master" and "replicas-all" ("ns1:base64,ns2:base64") are
// comma-separated lists of sub-records.
func Fields(value string) []string {
	if value == "" {
		return nil
	}
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
