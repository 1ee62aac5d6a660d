// Package fiscal implements the append-only, tamper-evident hash chain that
// links posted fiscal documents per (company, chain type).
package fiscal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChainType identifies an independent hash chain within a company
type ChainType string

const (
	ChainTypeInvoice      ChainType = "invoice"
	ChainTypeCreditNote   ChainType = "credit_note"
	ChainTypeJournalEntry ChainType = "journal_entry"
)

// String returns the string representation
func (c ChainType) String() string {
	return string(c)
}

// IsValid returns true if the chain type is known
func (c ChainType) IsValid() bool {
	switch c {
	case ChainTypeInvoice, ChainTypeCreditNote, ChainTypeJournalEntry:
		return true
	default:
		return false
	}
}

// ParseChainType validates s
func ParseChainType(s string) (ChainType, error) {
	c := ChainType(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", shared.NewValidationError("INVALID_CHAIN_TYPE", "Unknown fiscal chain type: "+s)
	}
	return c, nil
}

// DateLayout is the canonical date format inside hashed payloads
const DateLayout = "2006-01-02"

// Payload is the hashed content of a chain entry
type Payload struct {
	DocumentNumber string
	Date           time.Time
	Total          decimal.Decimal
	Currency       string
}

// Canonical returns the deterministic serialization used as hash input:
// a JSON object with keys in lexical order, the date as YYYY-MM-DD and the
// total with exactly two decimals.
func (p Payload) Canonical() string {
	// encoding/json writes map keys sorted, which fixes the key order.
	m := map[string]string{
		"currency":        strings.ToUpper(p.Currency),
		"date":            p.Date.Format(DateLayout),
		"document_number": p.DocumentNumber,
		"total":           p.Total.StringFixed(valueobject.DocumentScale),
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// Validate checks the payload carries every hashed field
func (p Payload) Validate() error {
	if strings.TrimSpace(p.DocumentNumber) == "" {
		return shared.NewValidationError("INVALID_PAYLOAD", "Document number is required for fiscal hashing")
	}
	if p.Date.IsZero() {
		return shared.NewValidationError("INVALID_PAYLOAD", "Document date is required for fiscal hashing")
	}
	if strings.TrimSpace(p.Currency) == "" {
		return shared.NewValidationError("INVALID_PAYLOAD", "Currency is required for fiscal hashing")
	}
	return nil
}

// ComputeHash returns hex(SHA256(previousHash + "|" + canonicalPayload)).
// previousHash is "" for the first entry of a chain.
func ComputeHash(payload Payload, previousHash string) string {
	sum := sha256.Sum256([]byte(previousHash + "|" + payload.Canonical()))
	return hex.EncodeToString(sum[:])
}

// Entry is one link of a fiscal hash chain
type Entry struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	ChainType      ChainType
	DocumentID     uuid.UUID
	SequenceNumber int64
	PreviousHash   string
	Hash           string
	Payload        Payload
	CreatedAt      time.Time
}

// NextEntry builds the successor of last (nil for an empty chain).
// The caller must hold the chain lock from reading last until the new entry
// is written.
func NextEntry(last *Entry, companyID uuid.UUID, chainType ChainType, documentID uuid.UUID, payload Payload) (*Entry, error) {
	if !chainType.IsValid() {
		return nil, shared.NewValidationError("INVALID_CHAIN_TYPE", "Unknown fiscal chain type: "+string(chainType))
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	seq := int64(1)
	prev := ""
	if last != nil {
		if last.CompanyID != companyID || last.ChainType != chainType {
			return nil, shared.NewInvariantError("CHAIN_MISMATCH", "Previous entry belongs to a different chain")
		}
		seq = last.SequenceNumber + 1
		prev = last.Hash
	}

	return &Entry{
		ID:             shared.NewID(),
		CompanyID:      companyID,
		ChainType:      chainType,
		DocumentID:     documentID,
		SequenceNumber: seq,
		PreviousHash:   prev,
		Hash:           ComputeHash(payload, prev),
		Payload:        payload,
		CreatedAt:      time.Now(),
	}, nil
}

// Verify recomputes the entry's hash from its payload and previous hash
func Verify(e Entry) bool {
	return ComputeHash(e.Payload, e.PreviousHash) == e.Hash
}

// BreakReason names why a chain failed verification
type BreakReason string

const (
	BreakHashMismatch BreakReason = "hash_mismatch"
	BreakLinkBroken   BreakReason = "link_broken"
	BreakSequenceGap  BreakReason = "sequence_gap"
	BreakBadGenesis   BreakReason = "bad_genesis"
)

// ChainReport is the result of VerifyChain
type ChainReport struct {
	Valid        bool        `json:"valid"`
	Length       int         `json:"length"`
	LastHash     string      `json:"last_hash,omitempty"`
	BrokenAt     int64       `json:"broken_at,omitempty"`
	Reason       BreakReason `json:"reason,omitempty"`
	LastVerified int64       `json:"last_verified"`
}

// VerifyChain folds over entries ordered by sequence number and stops at the
// first entry that breaks integrity.
func VerifyChain(entries []Entry) ChainReport {
	report := ChainReport{Valid: true, Length: len(entries)}
	var prev *Entry
	for i := range entries {
		e := &entries[i]
		reason := checkLink(prev, e)
		if reason == "" && !Verify(*e) {
			reason = BreakHashMismatch
		}
		if reason != "" {
			report.Valid = false
			report.BrokenAt = e.SequenceNumber
			report.Reason = reason
			return report
		}
		report.LastVerified = e.SequenceNumber
		report.LastHash = e.Hash
		prev = e
	}
	return report
}

func checkLink(prev, e *Entry) BreakReason {
	if prev == nil {
		if e.SequenceNumber != 1 || e.PreviousHash != "" {
			return BreakBadGenesis
		}
		return ""
	}
	if e.SequenceNumber != prev.SequenceNumber+1 {
		return BreakSequenceGap
	}
	if e.PreviousHash != prev.Hash {
		return BreakLinkBroken
	}
	return ""
}
