package redshift

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-dwh/internal/awsauth"
	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// loadOptions are shared by both COPY statements: no compression analysis,
// epoch millisecond timestamps, overflowing strings truncated, blank and
// empty values loaded as NULL.
const loadOptions = `COMPUPDATE OFF
    REGION %s
    TIMEFORMAT AS 'epochmillisecs'
    TRUNCATECOLUMNS BLANKSASNULL EMPTYASNULL`

// eventsCopy renders the staging_events COPY. The credential string is
// embedded in the statement text and the log fields are mapped with the
// jsonpaths file.
func (d *Dialect) eventsCopy(ctx context.Context, storage config.StorageConfig, role config.IAMRoleConfig) (string, error) {
	creds := awsauth.RoleCredentials(role.ARN)

	if storage.EventsCredentials == config.CredentialsKeys {
		provider, err := d.credentials(ctx, storage.Region)
		if err != nil {
			return "", err
		}
		creds, err = awsauth.KeyCredentials(ctx, provider)
		if err != nil {
			return "", err
		}
		logging.Warn().
			Str("table", warehouse.StagingEvents).
			Msg("Embedding access keys in COPY statement text")
	}

	return fmt.Sprintf(`
    COPY %s FROM %s
    CREDENTIALS %s
    `+loadOptions+`
    JSON %s`,
		warehouse.StagingEvents,
		warehouse.QuoteLiteral(storage.LogData),
		warehouse.QuoteLiteral(creds),
		warehouse.QuoteLiteral(storage.Region),
		warehouse.QuoteLiteral(storage.LogJSONPath),
	), nil
}

// songsCopy renders the staging_songs COPY. It authorizes with the role
// reference only and infers the JSON shape, matching keys to columns
// case-insensitively.
func songsCopy(storage config.StorageConfig, role config.IAMRoleConfig) string {
	return fmt.Sprintf(`
    COPY %s FROM %s
    IAM_ROLE %s
    `+loadOptions+`
    JSON 'auto ignorecase'`,
		warehouse.StagingSongs,
		warehouse.QuoteLiteral(storage.SongData),
		warehouse.QuoteLiteral(role.ARN),
		warehouse.QuoteLiteral(storage.Region),
	)
}
