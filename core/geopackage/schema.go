package geopackage

// Container identification written to the SQLite header.
const (
	ApplicationID = 0x47504B47 // "GPKG"
	UserVersion   = 10200
)

// Contents data types.
const (
	DataTypeFeatures   = "features"
	DataTypeTiles      = "tiles"
	DataTypeAttributes = "attributes"
)

// SpatialReference is a gpkg_spatial_ref_sys row.
type SpatialReference struct {
	ID           int32  `json:"srs_id"`
	Name         string `json:"srs_name"`
	Organization string `json:"organization"`
	OrgCoordsys  int64  `json:"organization_coordsys_id"`
	Definition   string `json:"definition"`
	Description  string `json:"description,omitempty"`
}

const wgs84Definition = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],` +
	`AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],` +
	`UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

const webMercatorDefinition = `PROJCS["WGS 84 / Pseudo-Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",` +
	`SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],` +
	`PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],` +
	`AUTHORITY["EPSG","4326"]],PROJECTION["Mercator_1SP"],PARAMETER["central_meridian",0],` +
	`PARAMETER["scale_factor",1],PARAMETER["false_easting",0],PARAMETER["false_northing",0],` +
	`UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["X",EAST],AXIS["Y",NORTH],AUTHORITY["EPSG","3857"]]`

// DefaultSpatialReferences are inserted into every new container.
var DefaultSpatialReferences = []SpatialReference{
	{ID: -1, Name: "Undefined cartesian SRS", Organization: "NONE", OrgCoordsys: -1, Definition: "undefined",
		Description: "undefined cartesian coordinate reference system"},
	{ID: 0, Name: "Undefined geographic SRS", Organization: "NONE", OrgCoordsys: 0, Definition: "undefined",
		Description: "undefined geographic coordinate reference system"},
	{ID: 4326, Name: "WGS 84 geodetic", Organization: "EPSG", OrgCoordsys: 4326, Definition: wgs84Definition,
		Description: "longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid"},
	{ID: 3857, Name: "WGS 84 / Pseudo-Mercator", Organization: "EPSG", OrgCoordsys: 3857, Definition: webMercatorDefinition,
		Description: "spherical Mercator projection used by web maps"},
}

var coreTables = []string{
	`CREATE TABLE IF NOT EXISTS "gpkg_spatial_ref_sys" (
		"srs_name" TEXT NOT NULL,
		"srs_id" INTEGER PRIMARY KEY,
		"organization" TEXT NOT NULL,
		"organization_coordsys_id" INTEGER NOT NULL,
		"definition" TEXT NOT NULL,
		"description" TEXT)`,

	`CREATE TABLE IF NOT EXISTS "gpkg_contents" (
		"table_name" TEXT NOT NULL PRIMARY KEY,
		"data_type" TEXT NOT NULL,
		"identifier" TEXT UNIQUE,
		"description" TEXT DEFAULT '',
		"last_change" DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		"min_x" DOUBLE,
		"min_y" DOUBLE,
		"max_x" DOUBLE,
		"max_y" DOUBLE,
		"srs_id" INTEGER,
		CONSTRAINT fk_gc_r_srs_id FOREIGN KEY ("srs_id") REFERENCES "gpkg_spatial_ref_sys"("srs_id"))`,

	`CREATE TABLE IF NOT EXISTS "gpkg_geometry_columns" (
		"table_name" TEXT NOT NULL,
		"column_name" TEXT NOT NULL,
		"geometry_type_name" TEXT NOT NULL,
		"srs_id" INTEGER NOT NULL,
		"z" TINYINT NOT NULL,
		"m" TINYINT NOT NULL,
		CONSTRAINT pk_geom_cols PRIMARY KEY ("table_name", "column_name"),
		CONSTRAINT uk_gc_table_name UNIQUE ("table_name"),
		CONSTRAINT fk_gc_tn FOREIGN KEY ("table_name") REFERENCES "gpkg_contents"("table_name"),
		CONSTRAINT fk_gc_srs FOREIGN KEY ("srs_id") REFERENCES "gpkg_spatial_ref_sys"("srs_id"))`,

	`CREATE TABLE IF NOT EXISTS "gpkg_tile_matrix_set" (
		"table_name" TEXT NOT NULL PRIMARY KEY,
		"srs_id" INTEGER NOT NULL,
		"min_x" DOUBLE NOT NULL,
		"min_y" DOUBLE NOT NULL,
		"max_x" DOUBLE NOT NULL,
		"max_y" DOUBLE NOT NULL,
		CONSTRAINT fk_gtms_table_name FOREIGN KEY ("table_name") REFERENCES "gpkg_contents"("table_name"),
		CONSTRAINT fk_gtms_srs FOREIGN KEY ("srs_id") REFERENCES "gpkg_spatial_ref_sys"("srs_id"))`,

	`CREATE TABLE IF NOT EXISTS "gpkg_tile_matrix" (
		"table_name" TEXT NOT NULL,
		"zoom_level" INTEGER NOT NULL,
		"matrix_width" INTEGER NOT NULL,
		"matrix_height" INTEGER NOT NULL,
		"tile_width" INTEGER NOT NULL,
		"tile_height" INTEGER NOT NULL,
		"pixel_x_size" DOUBLE NOT NULL,
		"pixel_y_size" DOUBLE NOT NULL,
		CONSTRAINT pk_ttm PRIMARY KEY ("table_name", "zoom_level"),
		CONSTRAINT fk_tmm_table_name FOREIGN KEY ("table_name") REFERENCES "gpkg_contents"("table_name"))`,
}
