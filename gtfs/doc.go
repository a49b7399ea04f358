/*
Package gtfs provides typed GTFS static entities, CSV loading, and the Feed
container the rest of the pipeline operates on.

The loader is source-flexible: it accepts a directory of GTFS text tables or a
zip archive. Rows are parsed into typed entities (Stop, Route, Trip, StopTime,
Shape) up front; downstream code never touches raw CSV records.

# Basic Usage

	feed, err := gtfs.Load("city-gtfs/")
	if err != nil {
	    log.Fatal(err)
	}
	// feed.Trips, feed.Stops, feed.Shapes ...

Loading does not clean the data. Referential integrity, missing times, and
implausible speeds are handled by the normalize package, which records every
rejected row in feed.Dropped.
*/
package gtfs
