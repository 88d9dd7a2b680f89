// Package api contains the HTTP request contracts of the ERW Pulse API.
// Fields carry `query` tags naming their URL parameter and `validate` tags
// checked with go-playground/validator.
package api

// DatasetQuery selects one feedstock at one saturation threshold.
type DatasetQuery struct {
	Feedstock string `json:"feedstock" query:"feedstock" validate:"max=64,feedstock"`
	Threshold int    `json:"omega" query:"omega" validate:"gte=0,lte=1000"`
}

// SamplesQuery pages through the samples of a dataset.
type SamplesQuery struct {
	DatasetQuery
	Region string `json:"region" query:"region" validate:"max=128"`
	State  string `json:"state" query:"state" validate:"max=128"`
	Skip   int    `json:"skip" query:"skip" validate:"gte=0"`
	Limit  int    `json:"limit" query:"limit" validate:"gte=1,lte=10000"`
}

// ExportQuery downloads the filtered samples of a dataset as CSV.
type ExportQuery struct {
	DatasetQuery
	Region string `json:"region" query:"region" validate:"max=128"`
	State  string `json:"state" query:"state" validate:"max=128"`
	BOM    bool   `json:"bom" query:"bom"`
}

// RiversQuery asks for the top rivers of a dataset.
type RiversQuery struct {
	DatasetQuery
	Limit int `json:"limit" query:"limit" validate:"gte=1,lte=200"`
}

// ComparisonQuery compares every loaded threshold of a feedstock.
type ComparisonQuery struct {
	Feedstock string `json:"feedstock" query:"feedstock" validate:"max=64,feedstock"`
}

// UploadRequest carries the form fields of a workbook upload.
type UploadRequest struct {
	FeedstockName string `json:"feedstock_name" form:"feedstock_name" validate:"required,max=64,feedstock"`
	Threshold     int    `json:"omega_threshold" form:"omega_threshold" validate:"gte=0,lte=1000"`
}

// UploadsQuery lists archived uploads, optionally for one feedstock.
type UploadsQuery struct {
	Feedstock string `json:"feedstock" query:"feedstock" validate:"max=64,feedstock"`
}

// DownloadQuery names one archived upload by the key Uploads returned.
type DownloadQuery struct {
	Key string `json:"key" query:"key" validate:"required,max=512"`
}
