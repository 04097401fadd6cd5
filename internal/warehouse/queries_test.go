package warehouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyStatement(t *testing.T) {
	stmt := copyStatement("trips", "s3://curated/trips/", "AKIAEXAMPLE", "secret", "parquet")

	require.Contains(t, stmt, "copy trips")
	require.Contains(t, stmt, "from 's3://curated/trips/'")
	require.Contains(t, stmt, "access_key_id 'AKIAEXAMPLE'")
	require.Contains(t, stmt, "secret_access_key 'secret'")
	require.Contains(t, stmt, "format as parquet")
}

func TestCheckQueries(t *testing.T) {
	require.Equal(t, "select count(*) from trips", rowCountQuery("trips"))
	require.Equal(t, "select count(*) - count(distinct trip_id) from trips", uniquenessQuery("trips", "trip_id"))
}

func TestTableRegistry(t *testing.T) {
	byName := make(map[string]Table, len(Tables))
	for _, tab := range Tables {
		byName[tab.Name] = tab
	}
	require.Len(t, byName, 3)

	require.Equal(t, "trip_id", byName["trips"].PrimaryKey)
	require.Equal(t, "parquet", byName["trips"].CopyFormat)
	require.Equal(t, "station_id", byName["stations"].PrimaryKey)
	require.Equal(t, "csv", byName["stations"].CopyFormat)

	// gbfs holds repeated station observations, so no pk is declared
	require.Empty(t, byName["gbfs"].PrimaryKey)

	for _, tab := range Tables {
		require.Contains(t, tab.CreateSQL, "drop table if exists "+tab.Name)
		require.Contains(t, tab.CreateSQL, "create table if not exists "+tab.Name)
		require.NotEmpty(t, tab.Prefix)
	}
}

func TestJobsFor(t *testing.T) {
	jobs := JobsFor("curated-bucket", map[string]int64{"trips": 100, "stations": 7, "gbfs": 900})

	require.Len(t, jobs, len(Tables))
	for _, j := range jobs {
		require.True(t, strings.HasPrefix(j.SourceURI, "s3://curated-bucket/"))
	}
	require.Equal(t, "s3://curated-bucket/trips/", jobs[0].SourceURI)
	require.Equal(t, int64(100), jobs[0].ExpectedRows)
	require.Equal(t, "s3://curated-bucket/stations/stations.csv", jobs[1].SourceURI)
	require.Equal(t, int64(900), jobs[2].ExpectedRows)
}
