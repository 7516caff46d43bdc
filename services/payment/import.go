package payment

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/services/broker"
	"estateos-brokerledger/services/tenant"
)

var importHeader = []string{"email", "amount", "currency", "reference", "method"}

// defaultImportMethod labels payments whose row leaves the method column blank.
const defaultImportMethod = "bulk import"

// ImportRowError carries the line number and reason for one rejected row so
// the operator can fix the file instead of guessing.
type ImportRowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type ImportResult struct {
	ImportID       string           `json:"import_id"`
	ProcessedCount int              `json:"processed_count"`
	ErrorCount     int              `json:"error_count"`
	SkippedCount   int              `json:"skipped_count"`
	TotalAllocated decimal.Decimal  `json:"total_allocated"`
	TotalRemainder decimal.Decimal  `json:"total_remainder"`
	Errors         []ImportRowError `json:"errors,omitempty"`
}

// Import reads a payment batch in CSV form and records one payment per row,
// allocating each as it goes. Rows are processed strictly in order so the
// FIFO sequence stays deterministic within a batch. A row that fails
// validation is counted and reported but never aborts the batch; a row whose
// content was already imported is skipped via its idempotency key, so
// re-running a file cannot double-pay.
func (s *Service) Import(ctx context.Context, tc tenant.Context, batchRef string, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errutil.ValidationFailed("import file is empty or unreadable")
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	importID, err := s.nextImportCode(ctx, tc)
	if err != nil {
		return nil, err
	}

	zapLog := zap.L().With(
		zap.String("tenant_id", tc.TenantID),
		zap.String("import_id", importID),
		zap.String("batch_ref", batchRef),
	)

	result := &ImportResult{
		ImportID:       importID,
		TotalAllocated: decimal.Zero,
		TotalRemainder: decimal.Zero,
	}

	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, ImportRowError{Line: line, Error: "malformed CSV row"})
			continue
		}

		allocation, skipped, err := s.importRow(ctx, tc, batchRef, importID, row)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, ImportRowError{Line: line, Error: err.Error()})
			continue
		}
		if skipped {
			result.SkippedCount++
			continue
		}

		result.ProcessedCount++
		result.TotalAllocated = result.TotalAllocated.Add(allocation.TotalAllocated)
		result.TotalRemainder = result.TotalRemainder.Add(allocation.Remainder)
	}

	zapLog.Info("payment import completed",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("errors", result.ErrorCount),
		zap.Int("skipped", result.SkippedCount),
		zap.String("total_allocated", result.TotalAllocated.String()),
		zap.String("total_remainder", result.TotalRemainder.String()),
	)

	return result, nil
}

func validateHeader(header []string) error {
	if len(header) < len(importHeader) {
		return errutil.ValidationFailed(fmt.Sprintf("import header must be %s", strings.Join(importHeader, ",")))
	}
	for i, want := range importHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return errutil.ValidationFailed(fmt.Sprintf("import header must be %s", strings.Join(importHeader, ",")))
		}
	}
	return nil
}

func (s *Service) importRow(ctx context.Context, tc tenant.Context, batchRef, importID string, row []string) (*AllocationResult, bool, error) {
	if len(row) < len(importHeader) {
		return nil, false, fmt.Errorf("expected %d columns, got %d", len(importHeader), len(row))
	}

	email := strings.ToLower(strings.TrimSpace(row[0]))
	if email == "" {
		return nil, false, fmt.Errorf("email is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(row[1]))
	if err != nil || !amount.IsPositive() {
		return nil, false, fmt.Errorf("amount must be a positive decimal number")
	}

	currency := strings.ToUpper(strings.TrimSpace(row[2]))
	if currency == "" {
		return nil, false, fmt.Errorf("currency is required")
	}

	bk, err := s.brokers.FindOne(ctx, &broker.Broker{TenantID: tc.TenantID, Email: email})
	if err != nil {
		return nil, false, err
	}
	if bk == nil {
		return nil, false, fmt.Errorf("no broker with email %s", email)
	}

	key := rowIdempotencyKey(tc.TenantID, batchRef, row)
	exist, err := s.payments.FindOne(ctx, &Payment{TenantID: tc.TenantID, IdempotencyKey: &key})
	if err != nil {
		return nil, false, err
	}
	if exist != nil {
		return nil, true, nil
	}

	method := strings.TrimSpace(row[4])
	if method == "" {
		method = defaultImportMethod
	}

	_, allocation, err := s.RecordPayment(ctx, tc, RecordPaymentInput{
		BrokerID:       bk.ID,
		Amount:         amount.String(),
		Currency:       currency,
		Reference:      strings.TrimSpace(row[3]),
		Method:         method,
		ImportID:       importID,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, false, err
	}
	if allocation == nil {
		return nil, true, nil
	}

	return allocation, false, nil
}

// rowIdempotencyKey fingerprints one row's content within its batch. The
// batch reference is part of the hash so the same payout can legitimately
// recur in a later batch.
func rowIdempotencyKey(tenantID, batchRef string, row []string) string {
	h := sha256.New()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(batchRef))
	for _, col := range row {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(col)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) nextImportCode(ctx context.Context, tc tenant.Context) (string, error) {
	if s.seq != nil {
		return s.seq.NextImportCode(ctx, tc.TenantID)
	}
	return s.node.Generate().String(), nil
}
