package api

// HealthOutput is the liveness/root response.
type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// ReadyOutput reports readiness of the gateway's dependencies.
type ReadyOutput struct {
	Status int
	Body   struct {
		Status string `json:"status"`
	}
}

// QueryInput is a read-only SQL query request.
type QueryInput struct {
	Body struct {
		Query      string `json:"query" doc:"SQL statement to execute"`
		Scope      string `json:"scope,omitempty" doc:"Target resource scope; defaults to the caller's primary scope"`
		MaxResults int64  `json:"maxResults,omitempty" minimum:"1" maximum:"10000"`
		TimeoutSec int64  `json:"timeoutSeconds,omitempty" minimum:"1" maximum:"900"`
		UseCache   *bool  `json:"useCache,omitempty" doc:"Use the warehouse query cache (default true)"`
		DryRun     bool   `json:"dryRun,omitempty" doc:"Validate the query without executing"`
	}
}

// QueryOutput carries query rows and job statistics.
type QueryOutput struct {
	Body struct {
		Scope          string           `json:"scope"`
		Rows           []map[string]any `json:"rows"`
		TotalRows      uint64           `json:"totalRows"`
		BytesProcessed int64            `json:"bytesProcessed,omitempty"`
		ExecutionMS    int64            `json:"executionMs"`
		JobID          string           `json:"jobId,omitempty"`
		CacheHit       bool             `json:"cacheHit,omitempty"`
	}
}

// DatasetsInput selects the scope to list datasets in.
type DatasetsInput struct {
	Scope string `query:"scope" doc:"Target resource scope; defaults to the caller's primary scope"`
}

// DatasetView is one dataset in a listing.
type DatasetView struct {
	ID       string `json:"id"`
	Scope    string `json:"scope"`
	Location string `json:"location,omitempty"`
}

// DatasetsOutput lists the datasets in a scope.
type DatasetsOutput struct {
	Body struct {
		Scope    string        `json:"scope"`
		Datasets []DatasetView `json:"datasets"`
		Count    int           `json:"count"`
	}
}

// TablesInput selects a dataset to list tables in.
type TablesInput struct {
	Dataset string `path:"dataset"`
	Scope   string `query:"scope" doc:"Target resource scope; defaults to the caller's primary scope"`
}

// TableView is one table in a listing.
type TableView struct {
	ID       string `json:"id"`
	Dataset  string `json:"dataset"`
	Scope    string `json:"scope"`
	Type     string `json:"type,omitempty"`
	NumRows  uint64 `json:"numRows,omitempty"`
	NumBytes int64  `json:"numBytes,omitempty"`
}

// TablesOutput lists the tables in a dataset.
type TablesOutput struct {
	Body struct {
		Scope   string      `json:"scope"`
		Dataset string      `json:"dataset"`
		Tables  []TableView `json:"tables"`
		Count   int         `json:"count"`
	}
}

// SchemaInput selects a table to describe.
type SchemaInput struct {
	Dataset string `path:"dataset"`
	Table   string `path:"table"`
	Scope   string `query:"scope" doc:"Target resource scope; defaults to the caller's primary scope"`
}

// PreviewInput selects a table to sample rows from.
type PreviewInput struct {
	Dataset string `path:"dataset"`
	Table   string `path:"table"`
	Scope   string `query:"scope" doc:"Target resource scope; defaults to the caller's primary scope"`
	Limit   int64  `query:"limit" default:"10" minimum:"1" maximum:"100" doc:"Number of rows to return"`
}

// PreviewOutput carries sampled table rows.
type PreviewOutput struct {
	Body struct {
		Scope   string           `json:"scope"`
		Dataset string           `json:"dataset"`
		Table   string           `json:"table"`
		Rows    []map[string]any `json:"rows"`
		Count   int              `json:"count"`
	}
}

// SchemaFieldView is one column of a table schema.
type SchemaFieldView struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode,omitempty"`
	Description string `json:"description,omitempty"`
}

// SchemaOutput describes a table's schema.
type SchemaOutput struct {
	Body struct {
		Scope   string            `json:"scope"`
		Dataset string            `json:"dataset"`
		Table   string            `json:"table"`
		Fields  []SchemaFieldView `json:"fields"`
	}
}

// UserOutput is the caller's resolved identity view.
type UserOutput struct {
	Body struct {
		SubjectID     string   `json:"subjectId"`
		Email         string   `json:"email"`
		EmailVerified bool     `json:"emailVerified"`
		TenantID      string   `json:"tenantId"`
		TenantName    string   `json:"tenantName,omitempty"`
		PrimaryScope  string   `json:"primaryScope"`
		Scopes        []string `json:"scopes"`
		Permissions   []string `json:"permissions"`
		SuperAdmin    bool     `json:"superAdmin"`
	}
}

// InvalidateInput names the cache entries to drop.
type InvalidateInput struct {
	Body struct {
		SubjectID string `json:"subjectId,omitempty" doc:"Subject to invalidate"`
		All       bool   `json:"all,omitempty" doc:"Invalidate every cached identity"`
	}
}

// InvalidateOutput reports what was dropped.
type InvalidateOutput struct {
	Body struct {
		Invalidated bool `json:"invalidated"`
	}
}

// CacheStatsOutput is the operator view of the identity cache.
type CacheStatsOutput struct {
	Body struct {
		Size       int   `json:"size"`
		Capacity   int   `json:"capacity"`
		TTLSeconds int64 `json:"ttlSeconds"`
		Hits       int64 `json:"hits"`
		Misses     int64 `json:"misses"`
	}
}

// UpsertUserInput creates or updates a directory user record.
type UpsertUserInput struct {
	SubjectID string `path:"subjectID"`
	Body      struct {
		Email         string   `json:"email"`
		EmailVerified bool     `json:"emailVerified,omitempty"`
		TenantID      string   `json:"tenantId"`
		Permissions   []string `json:"permissions,omitempty"`
	}
}

// UpsertTenantInput creates or updates a directory tenant record.
type UpsertTenantInput struct {
	TenantID string `path:"tenantID"`
	Body     struct {
		Name          string `json:"name"`
		ResourceScope string `json:"resourceScope"`
		DatasetID     string `json:"datasetId,omitempty"`
		Status        string `json:"status,omitempty"`
	}
}

// UpsertOutput acknowledges a directory write.
type UpsertOutput struct {
	Body struct {
		Updated bool `json:"updated"`
	}
}
