package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"time"
)

// Fingerprint is the structured cache key for an access request. Categories
// are sorted and deduplicated so request order never changes the key.
type Fingerprint struct {
	RequesterID       string
	RequesterRole     string
	SubjectID         string
	Categories        []string
	AccessType        AccessType
	Purpose           string
	FacilityID        string
	ProviderID        string
	ServiceType       string
	EmergencyOverride bool
}

func NewFingerprint(req *AccessRequest) Fingerprint {
	categories := req.UniqueCategories()
	sort.Strings(categories)
	return Fingerprint{
		RequesterID:       req.RequesterID,
		RequesterRole:     req.RequesterRole,
		SubjectID:         req.SubjectID,
		Categories:        categories,
		AccessType:        req.AccessType,
		Purpose:           req.Purpose,
		FacilityID:        req.FacilityID,
		ProviderID:        req.ProviderID,
		ServiceType:       req.ServiceType,
		EmergencyOverride: req.EmergencyOverride,
	}
}

// Key hashes the fingerprint. Every field is length-prefixed, so separator
// characters inside identifiers cannot make two fingerprints collide.
func (f Fingerprint) Key() string {
	h := sha256.New()
	var lenBuf [8]byte
	write := func(s string) {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}

	write(f.RequesterID)
	write(f.RequesterRole)
	write(f.SubjectID)
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(f.Categories)))
	h.Write(lenBuf[:])
	for _, c := range f.Categories {
		write(c)
	}
	write(string(f.AccessType))
	write(f.Purpose)
	write(f.FacilityID)
	write(f.ProviderID)
	write(f.ServiceType)
	if f.EmergencyOverride {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type CacheEntry struct {
	Decision  AccessDecision `json:"decision"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Servable reports whether the entry may still be returned at now.
func (e CacheEntry) Servable(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// CacheStats never exposes decision contents, only the hashed keys.
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}
