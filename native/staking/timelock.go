package staking

// IsUnlockable reports whether the freeze period of rec has elapsed at now.
// The boundary is inclusive.
func IsUnlockable(rec *StakeRecord, cfg *Config, now int64) bool {
	if rec == nil || cfg == nil {
		return false
	}
	if now < rec.StakedAt {
		return false
	}
	return uint64(now-rec.StakedAt) >= uint64(cfg.MinFreezePeriod)
}
