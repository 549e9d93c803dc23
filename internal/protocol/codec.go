package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// maxPayloadFileBytes caps instruction files referenced by path.
const maxPayloadFileBytes = 1 << 20

// ParseTrigger parses a trigger URL of the form scheme://<command>?payload=<...>.
//
// The payload is percent-decoded twice: once as a query value and once more for
// the encoding applied by the emitting integration. The result is either a JSON
// object or an absolute path to a file holding one.
//
// A command other than "run" returns the partially filled Trigger together with
// ErrUnknownCommand; the payload is not inspected in that case.
func ParseTrigger(raw string) (*Trigger, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &DecodeError{Stage: StageURL, Err: err}
	}

	trigger := &Trigger{Command: u.Host}
	if trigger.Command != CommandRun {
		return trigger, fmt.Errorf("%w: %q", ErrUnknownCommand, trigger.Command)
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return trigger, &DecodeError{Stage: StageQuery, Err: err}
	}
	if !values.Has(PayloadParam) {
		return trigger, decodeErr(StageField, "missing %q query parameter", PayloadParam)
	}

	// First pass happened in ParseQuery; the second is strict percent decoding
	// so a literal '+' from the emitter survives.
	payload, err := url.PathUnescape(values.Get(PayloadParam))
	if err != nil {
		return trigger, &DecodeError{Stage: StagePercent, Err: err}
	}
	trigger.Payload = payload

	in, err := LoadInstruction(payload)
	if err != nil {
		return trigger, err
	}
	trigger.Instruction = in
	return trigger, nil
}

// LoadInstruction decodes payload as a JSON instruction, or reads the
// instruction from the file payload points to when it is an absolute path.
func LoadInstruction(payload string) (Instruction, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return Instruction{}, decodeErr(StageField, "payload is empty")
	}
	if strings.HasPrefix(trimmed, "{") || !filepath.IsAbs(trimmed) {
		return DecodeInstruction([]byte(trimmed))
	}

	data, err := readPayloadFile(trimmed)
	if err != nil {
		return Instruction{}, &DecodeError{Stage: StageFile, Err: err}
	}
	return DecodeInstruction(data)
}

// DecodeInstruction parses exactly one JSON object into an Instruction.
func DecodeInstruction(data []byte) (Instruction, error) {
	var in Instruction

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&in); err != nil {
		return Instruction{}, &DecodeError{Stage: StageJSON, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Instruction{}, decodeErr(StageJSON, "unexpected data after instruction object")
	}

	if strings.TrimSpace(string(in.ActionType)) == "" {
		return Instruction{}, decodeErr(StageField, "instruction missing required field: actionType")
	}
	return in, nil
}

func readPayloadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open payload file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPayloadFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	if len(data) > maxPayloadFileBytes {
		return nil, fmt.Errorf("payload file %s exceeds %d bytes", path, maxPayloadFileBytes)
	}
	return data, nil
}

// EncodeTrigger is the inverse of ParseTrigger: it renders in as JSON, applies
// the emitter's percent encoding and then query escaping.
func EncodeTrigger(in Instruction) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode instruction: %w", err)
	}
	once := url.PathEscape(string(data))
	return fmt.Sprintf("%s://%s?%s=%s", Scheme, CommandRun, PayloadParam, url.QueryEscape(once)), nil
}

// EncodeFileTrigger builds a trigger whose payload is the absolute path of a
// file holding the instruction, the form used by the file-manager extension.
func EncodeFileTrigger(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("payload file path %q is not absolute", path)
	}
	once := url.PathEscape(path)
	return fmt.Sprintf("%s://%s?%s=%s", Scheme, CommandRun, PayloadParam, url.QueryEscape(once)), nil
}
