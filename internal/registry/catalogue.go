package registry

// catalogue is the static collection catalogue baked into the binary. It is
// never mutated at runtime; Registry.New copies it into a lookup map.
var catalogue = []Profile{
	{
		ID:               "sentinel-2-l2a",
		Name:             "Sentinel-2 Level 2A Surface Reflectance",
		Category:         CategoryOptical,
		ResolutionMeters: 10,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    true,
		},
		CloudCoverProperty: "eo:cloud_cover",
		TypicalTileSizeKm:  110,
	},
	{
		ID:               "landsat-c2-l2",
		Name:             "Landsat Collection 2 Level 2",
		Category:         CategoryOptical,
		ResolutionMeters: 30,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    true,
		},
		CloudCoverProperty: "eo:cloud_cover",
		TypicalTileSizeKm:  185,
	},
	{
		ID:               "hls2-l30",
		Name:             "Harmonized Landsat Sentinel-2 (Landsat-derived)",
		Category:         CategoryOptical,
		ResolutionMeters: 30,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    true,
		},
		CloudCoverProperty: "eo:cloud_cover",
		TypicalTileSizeKm:  110,
	},
	{
		ID:               "sentinel-1-grd",
		Name:             "Sentinel-1 Ground Range Detected (SAR)",
		Category:         CategoryRadar,
		ResolutionMeters: 10,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    false,
		},
		TypicalTileSizeKm: 250,
	},
	{
		ID:               "cop-dem-glo-30",
		Name:             "Copernicus DEM GLO-30",
		Category:         CategoryElevation,
		ResolutionMeters: 30,
		Capabilities: Capabilities{
			TemporalFilterable: false,
			CloudFilterable:    false,
			Static:             true,
		},
		TypicalTileSizeKm: 100,
	},
	{
		ID:               "nasadem",
		Name:             "NASADEM Global Elevation",
		Category:         CategoryElevation,
		ResolutionMeters: 30,
		Capabilities: Capabilities{
			TemporalFilterable: false,
			CloudFilterable:    false,
			Static:             true,
		},
		TypicalTileSizeKm: 100,
	},
	{
		ID:               "modis-ndvi",
		Name:             "MODIS Vegetation Indices 16-Day Composite",
		Category:         CategoryVegetation,
		ResolutionMeters: 250,
		Capabilities: Capabilities{
			TemporalFilterable: false,
			CloudFilterable:    false,
			Composite:          true,
		},
		TypicalTileSizeKm: 1200,
	},
	{
		ID:               "modis-fire",
		Name:             "MODIS Thermal Anomalies & Fire Daily",
		Category:         CategoryFire,
		ResolutionMeters: 1000,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    false,
		},
		TypicalTileSizeKm: 1200,
	},
	{
		ID:               "viirs-fire",
		Name:             "VIIRS Active Fire Detection",
		Category:         CategoryFire,
		ResolutionMeters: 375,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    false,
		},
		TypicalTileSizeKm: 800,
	},
	{
		ID:               "noaa-gfs",
		Name:             "NOAA Global Forecast System",
		Category:         CategoryWeather,
		ResolutionMeters: 25000,
		Capabilities: Capabilities{
			TemporalFilterable: true,
			CloudFilterable:    false,
		},
		TypicalTileSizeKm: 25000,
	},
}
