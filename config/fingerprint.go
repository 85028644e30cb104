package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"

	"subpool/core/scenario"
	"subpool/native/subscription"
)

// Fingerprint returns a stable digest of the economic parameters, letting
// exported runs be matched to the configuration that produced them.
// Ambient sections (logging, server, telemetry) do not contribute.
func (c *Config) Fingerprint() (string, error) {
	payload := struct {
		Tier       subscription.TierConfig  `json:"tier"`
		Curve      subscription.CurveConfig `json:"curve"`
		Fees       subscription.FeeConfig   `json:"fees"`
		Simulation scenario.Params          `json:"simulation"`
	}{c.Tier, c.Curve, c.Fees, c.Simulation}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("config: fingerprint: %w", err)
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
