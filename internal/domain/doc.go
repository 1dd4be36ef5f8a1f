// Package domain models Central Weather Administration (CWA) forecast data and
// the normalized documents this service writes.
//
// # Data Source
//
// Forecasts come from the CWA open-data datastore, dataset F-D0047-089
// (township forecasts for the next seven days), fetched as JSON at
// https://opendata.cwa.gov.tw/api/v1/rest/datastore/F-D0047-089. The request
// carries the API key in the "Authorization" query parameter; an invalid key is
// answered with either HTTP 401 or a body whose "success" field is not "true".
//
// # Payload Shapes
//
// The datastore has shipped several schema revisions of the same dataset. The
// normalizer accepts all of the ones observed so far:
//
//	records.Locations[0].Location[]        (current, PascalCase)
//	records.locations[0].location[]        (legacy, camelCase)
//	records.Locations.Location[]           (container without the wrapping list)
//
// Each city carries its name under LocationName / locationName and a list of
// weather elements under WeatherElement / weatherElement. An element is named
// by ElementName / elementName and holds a time series under Time / time. The
// first time entry is the one reported. Its datum lives under one of
//
//	ElementValue: [{"Weather": "多雲", "WeatherCode": "04"}]
//	elementValue: [{"value": "30", "measures": "百分比"}]
//	parameter:    {"parameterName": "多雲時晴", "parameterValue": "3"}
//
// Element names are either short codes (Wx, PoP, MinT, MaxT) or Chinese labels
// (天氣現象, 3小時降雨機率, 溫度) depending on dataset revision; see [ElementSet].
//
// # Missing Data
//
// A missing container ("records", the city list) makes the payload unusable
// and is reported as a [SchemaError]. A city without its reference element
// (weather description) is skipped and reported as a [Warning]. Any other
// missing element or value is kept as an absent [Value], which serializes as
// an empty string. Values are never coerced to numbers.
package domain
