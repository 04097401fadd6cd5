package warehouse

import "fmt"

// DDL mirrors the warehouse tables the load sequence owns; each statement
// drops and recreates so a run always loads into empty tables.

const createTripsTable = `
    drop table if exists trips;
    create table if not exists trips(
        trip_id int8 not null
        , start_date timestamp not null
        , end_date timestamp not null
        , duration_sec int
        , is_member varchar
        , start_station_id int8 not null
        , end_station_id int8 not null
    )`

const createGBFSTable = `
    drop table if exists gbfs;
    create table if not exists gbfs(
        station_id int8
        , is_charging bool
        , is_installed int8
        , is_renting int8
        , is_returning int8
        , last_reported int8
        , num_bikes_available int8
        , num_bikes_disabled int8
        , num_docks_available int8
        , num_docks_disabled int8
        , num_ebikes_available int8
        , last_updated_dt timestamp
    )`

const createStationsTable = `
    drop table if exists stations;
    create table if not exists stations(
        station_id int not null
        , name varchar
        , lat decimal(9,6)
        , lon decimal(9,6)
    )`

// Table describes one warehouse target: its DDL, the curated object prefix
// it loads from, the COPY format, and the declared primary key (empty when
// the table has none).
type Table struct {
	Name       string
	CreateSQL  string
	Prefix     string
	CopyFormat string
	PrimaryKey string
}

var Tables = []Table{
	{Name: "trips", CreateSQL: createTripsTable, Prefix: "trips/", CopyFormat: "parquet", PrimaryKey: "trip_id"},
	{Name: "stations", CreateSQL: createStationsTable, Prefix: "stations/stations.csv", CopyFormat: "csv", PrimaryKey: "station_id"},
	{Name: "gbfs", CreateSQL: createGBFSTable, Prefix: "gbfs/", CopyFormat: "parquet"},
}

// copyStatement renders the bulk-load statement. The COPY semantics belong
// entirely to the warehouse; this is string templating only.
func copyStatement(table, sourceURI, accessKeyID, secretAccessKey, format string) string {
	return fmt.Sprintf(`
    copy %s
    from '%s'
    access_key_id '%s'
    secret_access_key '%s'
    format as %s
`, table, sourceURI, accessKeyID, secretAccessKey, format)
}

func rowCountQuery(table string) string {
	return fmt.Sprintf("select count(*) from %s", table)
}

func uniquenessQuery(table, pk string) string {
	return fmt.Sprintf("select count(*) - count(distinct %s) from %s", pk, table)
}
