package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
)

// shortIDBytes is the hash prefix length encoded by ShortRunID.
const shortIDBytes = 12

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(mode|scenario|model|q_values|n|seed)
// The scenario's own Seed and Replications are ignored in favour of the
// effective n and seed. Returns hex-encoded hash (64 characters).
func ComputeRunID(mode string, sc domain.Scenario, m config.Model, qs []int, n int, seed int64) string {
	sc.Seed = 0
	sc.Replications = 0

	q := make([]string, len(qs))
	for i, v := range qs {
		q[i] = strconv.Itoa(v)
	}

	data := fmt.Sprintf("%s|%+v|%+v|%s|%d|%d",
		mode,
		sc,
		m,
		strings.Join(q, ","),
		n,
		seed,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortRunID returns the base58 encoding of the first 12 bytes of a run_id,
// suitable for file names and log lines.
func ShortRunID(runID string) (string, error) {
	raw, err := hex.DecodeString(runID)
	if err != nil {
		return "", fmt.Errorf("decode run id: %w", err)
	}
	if len(raw) < shortIDBytes {
		return "", fmt.Errorf("run id too short: %d bytes", len(raw))
	}
	return base58.Encode(raw[:shortIDBytes]), nil
}
