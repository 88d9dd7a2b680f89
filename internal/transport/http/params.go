package http

import (
	"net/url"
	"strconv"
	"strings"

	apierrors "erwpulse/internal/errors"
	api "erwpulse/pkg/contracts/api/v1"
)

// Parameter defaults.
const (
	DefaultFeedstock       = "calcite"
	DefaultThreshold       = 5
	DefaultUploadFeedstock = "unknown"
)

func stringParam(values url.Values, name, def string) string {
	if v := strings.TrimSpace(values.Get(name)); v != "" {
		return v
	}
	return def
}

func intParam(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, name+" must be an integer")
	}
	return n, nil
}

// parseDataset reads feedstock and omega, falling back to def.
func parseDataset(values url.Values, def api.DatasetQuery) (api.DatasetQuery, error) {
	threshold, err := intParam(values, "omega", def.Threshold)
	if err != nil {
		return api.DatasetQuery{}, err
	}
	return api.DatasetQuery{
		Feedstock: stringParam(values, "feedstock", def.Feedstock),
		Threshold: threshold,
	}, nil
}

func parseSamples(values url.Values, def api.DatasetQuery) (api.SamplesQuery, error) {
	dataset, err := parseDataset(values, def)
	if err != nil {
		return api.SamplesQuery{}, err
	}
	q := api.SamplesQuery{
		DatasetQuery: dataset,
		Region:       strings.TrimSpace(values.Get("region")),
		State:        strings.TrimSpace(values.Get("state")),
	}
	if q.Skip, err = intParam(values, "skip", 0); err != nil {
		return api.SamplesQuery{}, err
	}
	if q.Limit, err = intParam(values, "limit", 200); err != nil {
		return api.SamplesQuery{}, err
	}
	return q, nil
}

func parseExport(values url.Values, def api.DatasetQuery) (api.ExportQuery, error) {
	dataset, err := parseDataset(values, def)
	if err != nil {
		return api.ExportQuery{}, err
	}
	q := api.ExportQuery{
		DatasetQuery: dataset,
		Region:       strings.TrimSpace(values.Get("region")),
		State:        strings.TrimSpace(values.Get("state")),
	}
	if raw := strings.TrimSpace(values.Get("bom")); raw != "" {
		if q.BOM, err = strconv.ParseBool(raw); err != nil {
			return api.ExportQuery{}, apierrors.ErrValidation("bom", "bom must be a boolean")
		}
	}
	return q, nil
}

func parseRivers(values url.Values, def api.DatasetQuery) (api.RiversQuery, error) {
	dataset, err := parseDataset(values, def)
	if err != nil {
		return api.RiversQuery{}, err
	}
	limit, err := intParam(values, "limit", 20)
	if err != nil {
		return api.RiversQuery{}, err
	}
	return api.RiversQuery{DatasetQuery: dataset, Limit: limit}, nil
}

// parseUpload reads the upload fields from the form, falling back to the
// query string.
func parseUpload(values url.Values) (api.UploadRequest, error) {
	threshold, err := intParam(values, "omega_threshold", DefaultThreshold)
	if err != nil {
		return api.UploadRequest{}, err
	}
	return api.UploadRequest{
		FeedstockName: stringParam(values, "feedstock_name", DefaultUploadFeedstock),
		Threshold:     threshold,
	}, nil
}
