package config

import (
	"errors"
	"fmt"
)

/*
Validation covers everything the server and worker need to start. Missing
AI keys are deliberately NOT validated here: providers without a key come
up disabled and report unavailability per call, so the rest of the system
(upload, listing, polling) keeps working.
*/

func (c *Config) Validate() error {
	// Database config
	if c.Database.Primary.DSN == "" {
		return errors.New("database.primary.DSN is required")
	}

	// Uploads config
	if c.Uploads.Dir == "" {
		return errors.New("uploads.dir is required")
	}

	// Redis config
	if c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}

	// Worker config
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	// Model selectors must be fully specified; the defaults cover them, so
	// an empty value means a config file cleared one on purpose.
	for _, sel := range []struct{ name, provider, model string }{
		{"ai.extraction", c.AI.Extraction.Provider, c.AI.Extraction.Model},
		{"ai.batch", c.AI.Batch.Provider, c.AI.Batch.Model},
		{"ai.answers", c.AI.Answers.Provider, c.AI.Answers.Model},
	} {
		if sel.provider == "" || sel.model == "" {
			return fmt.Errorf("%s.provider and %s.model must both be set", sel.name, sel.name)
		}
		if sel.provider != "openai" && sel.provider != "gemini" {
			return fmt.Errorf("%s.provider must be 'openai' or 'gemini', got '%s'", sel.name, sel.provider)
		}
	}

	return nil
}
