// Package domain models catchment analysis over Census 2021 output areas.
//
// # Data Sources
//
// Output-area centroids come from the ONS population-weighted centroid CSV
// (columns FID, OA21CD, GlobalID, x, y). Coordinates are British National Grid
// (EPSG:27700) eastings and northings in metres and are reprojected to WGS84
// longitude/latitude on load. See [OSGBToWGS84].
//
// Census attributes are a wide CSV with one row per output area, keyed by the
// "geography" column. Large exports are split into several parts that share a
// header; only the first part's header is used.
//
// # Field Naming
//
// Census columns use dotted topic names joined with "|":
//
//	Ethnic.group|Total|All.usual.residents
//	Ethnic.group|White
//	Accommodation.type|Semi.detached
//
// The "Total" column of each topic is the denominator for its percentages.
// Missing, empty or unparseable values count as zero.
//
// # Classification
//
// Each output area carries a three-level area classification:
//
//	Supergroup Name → Group Name → Subgroup Name
//
// Supergroups map to a fixed colour palette used by the map overlay, the legend
// and the first level of the treemap. Unknown supergroups render as #ccc.
//
// # Catchments
//
// A catchment is the area reachable from an origin, either by travel time
// (minutes, computed upstream as an isochrone) or straight-line distance
// (miles, computed locally as a 64-vertex geodesic circle). Output areas whose
// centroid falls inside the catchment, boundary included, are "matched".
package domain
