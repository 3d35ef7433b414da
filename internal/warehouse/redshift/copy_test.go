package redshift

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

var (
	testStorage = config.StorageConfig{
		LogData:           "s3://udacity-dend/log_data",
		LogJSONPath:       "s3://udacity-dend/log_json_path.json",
		SongData:          "s3://udacity-dend/song_data",
		Region:            "us-west-2",
		EventsCredentials: config.CredentialsRole,
	}
	testRole = config.IAMRoleConfig{ARN: "arn:aws:iam::123456789012:role/dwhRole"}
)

func staticCredentials(creds aws.Credentials) func(context.Context, string) (aws.CredentialsProvider, error) {
	return func(context.Context, string) (aws.CredentialsProvider, error) {
		return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}), nil
	}
}

func assertContains(t *testing.T, s string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(s, p) {
			t.Errorf("expected %q in:\n%s", p, s)
		}
	}
}

func TestStagingStepsOrderAndTables(t *testing.T) {
	steps, err := New().StagingSteps(context.Background(), testStorage, testRole)
	if err != nil {
		t.Fatalf("StagingSteps failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want exactly 2", len(steps))
	}
	if steps[0].Table != warehouse.StagingEvents || steps[1].Table != warehouse.StagingSongs {
		t.Errorf("unexpected step order: %s, %s", steps[0].Table, steps[1].Table)
	}
	for _, s := range steps {
		if s.Run != nil {
			t.Errorf("step %s should be a SQL step", s.Name)
		}
	}
}

func TestEventsCopyRoleCredentials(t *testing.T) {
	steps, err := New().StagingSteps(context.Background(), testStorage, testRole)
	if err != nil {
		t.Fatalf("StagingSteps failed: %v", err)
	}
	sql := steps[0].SQL

	assertContains(t, sql,
		"COPY staging_events FROM 's3://udacity-dend/log_data'",
		"CREDENTIALS 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'",
		"COMPUPDATE OFF",
		"REGION 'us-west-2'",
		"TIMEFORMAT AS 'epochmillisecs'",
		"TRUNCATECOLUMNS BLANKSASNULL EMPTYASNULL",
		"JSON 's3://udacity-dend/log_json_path.json'",
	)
	if strings.Contains(sql, "IAM_ROLE") {
		t.Errorf("events COPY should use the inline credential string:\n%s", sql)
	}
}

func TestSongsCopyRoleReferenceOnly(t *testing.T) {
	storage := testStorage
	storage.EventsCredentials = config.CredentialsKeys

	d := &Dialect{credentials: staticCredentials(aws.Credentials{
		AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI",
	})}
	steps, err := d.StagingSteps(context.Background(), storage, testRole)
	if err != nil {
		t.Fatalf("StagingSteps failed: %v", err)
	}
	sql := steps[1].SQL

	assertContains(t, sql,
		"COPY staging_songs FROM 's3://udacity-dend/song_data'",
		"IAM_ROLE 'arn:aws:iam::123456789012:role/dwhRole'",
		"TIMEFORMAT AS 'epochmillisecs'",
		"TRUNCATECOLUMNS BLANKSASNULL EMPTYASNULL",
		"JSON 'auto ignorecase'",
	)
	if strings.Contains(sql, "aws_access_key_id") || strings.Contains(sql, "CREDENTIALS") {
		t.Errorf("songs COPY must never embed keys:\n%s", sql)
	}
}

func TestEventsCopyKeyCredentials(t *testing.T) {
	storage := testStorage
	storage.EventsCredentials = config.CredentialsKeys

	var gotRegion string
	d := &Dialect{credentials: func(ctx context.Context, region string) (aws.CredentialsProvider, error) {
		gotRegion = region
		return staticCredentials(aws.Credentials{
			AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI",
		})(ctx, region)
	}}

	steps, err := d.StagingSteps(context.Background(), storage, testRole)
	if err != nil {
		t.Fatalf("StagingSteps failed: %v", err)
	}
	if gotRegion != "us-west-2" {
		t.Errorf("credentials resolved for region %q, want us-west-2", gotRegion)
	}

	assertContains(t, steps[0].SQL,
		"CREDENTIALS 'aws_access_key_id=AKIDEXAMPLE;aws_secret_access_key=wJalrXUtnFEMI'")
	if strings.Contains(steps[0].LogSQL, "wJalrXUtnFEMI") {
		t.Errorf("log SQL leaks the secret key:\n%s", steps[0].LogSQL)
	}
}

func TestEventsCopyKeyCredentialsError(t *testing.T) {
	storage := testStorage
	storage.EventsCredentials = config.CredentialsKeys

	d := &Dialect{credentials: func(context.Context, string) (aws.CredentialsProvider, error) {
		return nil, errors.New("no profile")
	}}
	if _, err := d.StagingSteps(context.Background(), storage, testRole); err == nil {
		t.Fatal("expected credential resolution error")
	}
}

func TestCopyQuotesLiterals(t *testing.T) {
	storage := testStorage
	storage.LogData = "s3://bucket/it's/log_data"

	steps, err := New().StagingSteps(context.Background(), storage, testRole)
	if err != nil {
		t.Fatalf("StagingSteps failed: %v", err)
	}
	assertContains(t, steps[0].SQL, "FROM 's3://bucket/it''s/log_data'")
}

func TestSongplayTableSQL(t *testing.T) {
	sql := New().SongplayTableSQL()
	assertContains(t, sql,
		"CREATE TABLE IF NOT EXISTS fact_songplay",
		"songplay_id bigint identity(0, 1) PRIMARY KEY NOT NULL",
		"start_time  timestamp NOT NULL",
		"user_id     int NOT NULL",
	)
}

func TestRegistered(t *testing.T) {
	d, err := warehouse.Get("redshift")
	if err != nil {
		t.Fatalf("redshift dialect not registered: %v", err)
	}
	if !d.SimpleProtocol() {
		t.Error("redshift should use the simple protocol")
	}
	if d.Description() == "" {
		t.Error("description should not be empty")
	}
}
