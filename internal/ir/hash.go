package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix allows a future
// algorithm change without colliding with recorded values.
const (
	DomainInput  = "stated/input/v1"
	DomainOutput = "stated/output/v1"
	DomainPlan   = "stated/plan/v1"
	DomainConfig = "stated/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InputFingerprint identifies a template's source bytes together with the
// generator version that will expand it.
func InputFingerprint(src []byte) string {
	data := make([]byte, 0, len(GeneratorVersion)+1+len(src))
	data = append(data, GeneratorVersion...)
	data = append(data, 0x00)
	data = append(data, src...)
	return hashWithDomain(DomainInput, data)
}

// OutputFingerprint identifies the bytes of a generated file.
func OutputFingerprint(out []byte) string {
	return hashWithDomain(DomainOutput, out)
}

// ConfigFingerprint identifies the settings an expansion ran with.
func ConfigFingerprint(cfg Object) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// PlanFingerprint identifies a file's expansion plan.
func PlanFingerprint(plan *FilePlan) (string, error) {
	canonical, err := MarshalCanonical(plan.ToValue())
	if err != nil {
		return "", fmt.Errorf("PlanFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}
