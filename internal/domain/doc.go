// Package domain implements the raster analysis core for urban heat island
// (UHI) detection from Landsat Collection 2 Level-2 scenes.
//
// # Data Source
//
// Scenes are multispectral-thermal acquisitions following the USGS Landsat
// 8/9 Collection 2 Level-2 product conventions. The bands this package cares
// about:
//
//	QA_PIXEL  per-pixel quality bitfield. Bit 3 = cloud shadow, bit 5 = cloud.
//	          A pixel is usable when the requested bits are clear.
//	ST_B10    surface temperature as 16-bit digital numbers (DN). Physical
//	          Kelvin = 0.00341802·DN + 149.0. DN 0 and 65535 are sentinel
//	          no-data/saturation values and must be excluded before any
//	          statistics.
//	SR_B2..4  surface reflectance DN. Physical reflectance = 0.0000275·DN − 0.2.
//
// LST ("land surface temperature") is the converted thermal band in degrees
// Celsius (Kelvin − 273.15), renamed to the stable alias "LST" before
// thresholding.
//
// # Coordinate model
//
// Grids, regions, and sampling scales all live in a single projected planar
// CRS with meter units (one UTM zone in practice). Region geometries must be
// supplied already projected to the scene grid's CRS; reprojection is a
// caller concern. Pixels are square; the grid origin is the top-left corner
// and row indices increase southward.
//
// # Pipeline
//
// The analysis chain for one period is:
//
//	quality mask (QA bits) → thermal range mask → per-pixel percentile
//	composite → DN-to-Celsius conversion → zonal percentile threshold →
//	hotspot mask (≥ threshold, ties included) → connected-component
//	minimum-patch filter → zonal area/severity statistics
//
// Every step is a pure transformation: rasters, masks, and zonal results are
// never mutated in place, and validity masks accumulate by intersection.
//
// # Percentiles
//
// Both the temporal compositor and the zonal reducer use linear
// interpolation between closest ranks (rank = p/100·(n−1) over the sorted
// valid values). See [Percentile].
//
// # Degraded behavior
//
// The core never fails on data-quality conditions; it degrades and reports:
// an empty collection yields no composite, a zonal reduction with zero valid
// samples yields an empty result (absence, not zero), a missing percentile
// key falls back to the first zonal entry, and a zero union area makes the
// Jaccard index undefined rather than zero. Only malformed inputs (unknown
// band names, nonsensical percentiles or scales) return errors.
package domain
