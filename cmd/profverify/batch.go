package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Em-Deesha/profverify/internal/domain"
)

const maxLineBytes = 1 << 20

// Verifier is the part of the verification service the CLI uses.
type Verifier interface {
	Verify(ctx context.Context, req domain.VerificationRequest) (domain.VerificationResult, error)
}

// BatchStats summarizes a batch run.
type BatchStats struct {
	Total    int
	Verified int
	Failed   int
}

// batchRecord is one output line. Exactly one of Result and Error is set.
type batchRecord struct {
	Line       int                        `json:"line"`
	Name       string                     `json:"name"`
	University string                     `json:"university"`
	Result     *domain.VerificationResult `json:"result,omitempty"`
	Error      string                     `json:"error,omitempty"`
}

// RunBatch reads one JSON request per line from in, verifies up to workers
// of them at a time and writes one record per request to out in input
// order. Malformed lines and rejected requests are reported in their
// record; only I/O failures and cancellation abort the run.
func RunBatch(ctx context.Context, v Verifier, in io.Reader, out io.Writer, workers int) (BatchStats, error) {
	records, err := readRequests(in)
	if err != nil {
		return BatchStats{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i := range records {
		rec := &records[i]
		if rec.Error != "" {
			continue
		}
		g.Go(func() error {
			result, err := v.Verify(gctx, domain.VerificationRequest{Name: rec.Name, University: rec.University})
			if err != nil {
				rec.Error = err.Error()
				return nil
			}
			rec.Result = &result
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return BatchStats{}, err
	}

	var stats BatchStats
	enc := json.NewEncoder(out)
	for _, rec := range records {
		stats.Total++
		switch {
		case rec.Error != "":
			stats.Failed++
		case rec.Result.Verified:
			stats.Verified++
		}
		if err := enc.Encode(rec); err != nil {
			return stats, fmt.Errorf("failed to write result for line %d: %w", rec.Line, err)
		}
	}
	return stats, nil
}

// readRequests parses every non-blank line. Lines that are not a JSON
// request become records carrying the parse error.
func readRequests(in io.Reader) ([]batchRecord, error) {
	var records []batchRecord

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		rec := batchRecord{Line: line}
		var req domain.VerificationRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			rec.Error = fmt.Sprintf("invalid request: %v", err)
		} else {
			rec.Name, rec.University = req.Name, req.University
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}
	return records, nil
}
