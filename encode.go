package pnl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Event logs are persisted as JSONL: one JSON object per line, human-readable
// and append-friendly. Empty lines are ignored when decoding.

// maxLineSize bounds the size of a single JSONL record.
const maxLineSize = 1 << 20

// decodeLines decodes every non empty line of r into a T.
func decodeLines[T any](r io.Reader) ([]T, error) {
	var list []T
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	i := 0
	for scanner.Scan() {
		i++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return list, fmt.Errorf("parse error line %d: %w", i, err)
		}
		list = append(list, v)
	}
	if err := scanner.Err(); err != nil {
		return list, fmt.Errorf("read error after line %d: %w", i, err)
	}
	return list, nil
}

// encodeLine writes v as a single JSON line.
func encodeLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// DecodeRawTransfers reads raw transfers from a JSONL stream.
func DecodeRawTransfers(r io.Reader) ([]RawTransfer, error) {
	return decodeLines[RawTransfer](r)
}

// EncodeRawTransfer appends raw as a JSONL line to w.
func EncodeRawTransfer(w io.Writer, raw RawTransfer) error {
	if err := encodeLine(w, raw); err != nil {
		return fmt.Errorf("cannot encode transfer %s#%d: %w", raw.Signature, raw.Index, err)
	}
	return nil
}

// DecodeEvents reads trade events from a JSONL stream.
func DecodeEvents(r io.Reader) ([]TradeEvent, error) {
	return decodeLines[TradeEvent](r)
}

// EncodeEvent appends e as a JSONL line to w.
func EncodeEvent(w io.Writer, e TradeEvent) error {
	if err := encodeLine(w, e); err != nil {
		return fmt.Errorf("cannot encode event %s#%d: %w", e.Ref, e.Index, err)
	}
	return nil
}
