package fiscal

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload(n int) Payload {
	return Payload{
		DocumentNumber: fmt.Sprintf("INV-2026-%05d", n),
		Date:           time.Date(2026, 3, n%28+1, 15, 4, 5, 0, time.UTC),
		Total:          decimal.RequireFromString("120.5"),
		Currency:       "eur",
	}
}

func buildChain(t *testing.T, n int) []Entry {
	t.Helper()
	company := uuid.New()
	var entries []Entry
	var last *Entry
	for i := 1; i <= n; i++ {
		e, err := NextEntry(last, company, ChainTypeInvoice, uuid.New(), samplePayload(i))
		require.NoError(t, err)
		entries = append(entries, *e)
		last = e
	}
	return entries
}

func TestPayloadCanonical(t *testing.T) {
	p := samplePayload(1)
	assert.Equal(t,
		`{"currency":"EUR","date":"2026-03-02","document_number":"INV-2026-00001","total":"120.50"}`,
		p.Canonical())

	t.Run("time of day does not affect canonical form", func(t *testing.T) {
		q := p
		q.Date = q.Date.Add(3 * time.Hour)
		assert.Equal(t, p.Canonical(), q.Canonical())
	})
}

func TestComputeHash(t *testing.T) {
	p := samplePayload(1)
	h1 := ComputeHash(p, "")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, ComputeHash(p, ""), "deterministic")
	assert.NotEqual(t, h1, ComputeHash(p, "abc"), "previous hash is part of the input")
}

func TestNextEntry(t *testing.T) {
	company := uuid.New()

	t.Run("genesis entry", func(t *testing.T) {
		e, err := NextEntry(nil, company, ChainTypeInvoice, uuid.New(), samplePayload(1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), e.SequenceNumber)
		assert.Equal(t, "", e.PreviousHash)
		assert.True(t, Verify(*e))
	})

	t.Run("successor links to predecessor", func(t *testing.T) {
		first, err := NextEntry(nil, company, ChainTypeInvoice, uuid.New(), samplePayload(1))
		require.NoError(t, err)
		second, err := NextEntry(first, company, ChainTypeInvoice, uuid.New(), samplePayload(2))
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.SequenceNumber)
		assert.Equal(t, first.Hash, second.PreviousHash)
	})

	t.Run("rejects predecessor from another chain", func(t *testing.T) {
		first, err := NextEntry(nil, company, ChainTypeInvoice, uuid.New(), samplePayload(1))
		require.NoError(t, err)
		_, err = NextEntry(first, company, ChainTypeCreditNote, uuid.New(), samplePayload(2))
		assert.Error(t, err)
	})

	t.Run("rejects incomplete payload", func(t *testing.T) {
		p := samplePayload(1)
		p.DocumentNumber = ""
		_, err := NextEntry(nil, company, ChainTypeInvoice, uuid.New(), p)
		assert.Error(t, err)
	})

	t.Run("rejects unknown chain type", func(t *testing.T) {
		_, err := NextEntry(nil, company, ChainType("quote"), uuid.New(), samplePayload(1))
		assert.Error(t, err)
	})
}

func TestVerifyChainIntegrity(t *testing.T) {
	entries := buildChain(t, 10)

	assert.Equal(t, "", entries[0].PreviousHash)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].Hash, entries[i].PreviousHash)
		assert.True(t, Verify(entries[i]))
	}

	report := VerifyChain(entries)
	assert.True(t, report.Valid)
	assert.Equal(t, 10, report.Length)
	assert.Equal(t, int64(10), report.LastVerified)
	assert.Equal(t, entries[9].Hash, report.LastHash)
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(e []Entry)
		at     int64
		reason BreakReason
	}{
		{"total changed", func(e []Entry) { e[3].Payload.Total = decimal.RequireFromString("120.51") }, 4, BreakHashMismatch},
		{"number changed", func(e []Entry) { e[2].Payload.DocumentNumber = "INV-X" }, 3, BreakHashMismatch},
		{"currency changed", func(e []Entry) { e[1].Payload.Currency = "USD" }, 2, BreakHashMismatch},
		{"date changed", func(e []Entry) { e[5].Payload.Date = e[5].Payload.Date.AddDate(0, 0, 1) }, 6, BreakHashMismatch},
		{"link rewritten", func(e []Entry) { e[4].PreviousHash = e[2].Hash }, 5, BreakLinkBroken},
		{"gap", func(e []Entry) { e[6].SequenceNumber = 9 }, 9, BreakSequenceGap},
		{"genesis with previous hash", func(e []Entry) { e[0].PreviousHash = "00" }, 1, BreakBadGenesis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := buildChain(t, 8)
			tt.tamper(entries)
			report := VerifyChain(entries)
			assert.False(t, report.Valid)
			assert.Equal(t, tt.at, report.BrokenAt)
			assert.Equal(t, tt.reason, report.Reason)
		})
	}
}

func TestVerifyEmptyChain(t *testing.T) {
	report := VerifyChain(nil)
	assert.True(t, report.Valid)
	assert.Equal(t, 0, report.Length)
}

func TestParseChainType(t *testing.T) {
	c, err := ParseChainType(" Invoice ")
	require.NoError(t, err)
	assert.Equal(t, ChainTypeInvoice, c)

	_, err = ParseChainType("order")
	assert.Error(t, err)
}

func TestChainKeyLockKey(t *testing.T) {
	id := uuid.MustParse("7d0e6a3c-0000-4000-8000-000000000001")
	k := ChainKey{CompanyID: id, ChainType: ChainTypeCreditNote}
	assert.Equal(t, "fiscal:7d0e6a3c-0000-4000-8000-000000000001:credit_note", k.LockKey())
}
