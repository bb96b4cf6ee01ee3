package jobs

import "nurture_backend/platform/config"

// LeaseFromConfig builds the claim lease this process uses.
func LeaseFromConfig(cfg config.EngineConfig) Lease {
	return Lease{
		Owner: cfg.GetEngineInstanceID(),
		TTL:   cfg.GetEngineLeaseTTL(),
		Limit: cfg.GetEngineBatchSize(),
	}
}

// BackoffFromConfig builds the retry schedule shared by every stage.
func BackoffFromConfig(cfg config.EngineConfig) Backoff {
	return Backoff{
		Base:        cfg.GetRetryBaseDelay(),
		Max:         cfg.GetRetryMaxDelay(),
		MaxAttempts: cfg.GetRetryMaxAttempts(),
	}
}
