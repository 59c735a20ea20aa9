package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

// SettingsClient reads and writes the deployment-wide scheduling settings.
type SettingsClient struct {
	httpClient *HttpClient
	userRole   string
}

func NewSettingsClient(baseURL string) *SettingsClient {
	return &SettingsClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *SettingsClient) As(role string) *SettingsClient {
	c.userRole = role
	return c
}

// SchedulingMode fetches the current mode flags. The scheduling core calls
// this once per evaluation cycle.
func (c *SettingsClient) SchedulingMode(ctx context.Context) (model.SchedulingMode, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/settings")
	if err != nil {
		return model.SchedulingMode{}, apperrors.Internal("settings service unreachable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.SchedulingMode{}, apperrors.Internal(GetErrorMessage(resp), nil)
	}

	var wrapper struct {
		Data map[string]string `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return model.SchedulingMode{}, fmt.Errorf("could not decode settings:\n%s\n%w", resp.ToString(), err)
	}
	return model.SchedulingMode{
		SlotMode:  wrapper.Data[model.SettingEnableHourlySlots] == "true",
		MultiSlot: wrapper.Data[model.SettingAllowMultipleSlots] == "true",
	}, nil
}

func (c *SettingsClient) UpdateSetting(ctx context.Context, key, value string) error {
	headers := map[string]string{}
	if c.userRole != "" {
		headers["X-User-Role"] = c.userRole
	}

	body := struct {
		Value string `json:"value"`
	}{Value: value}

	resp, err := c.httpClient.requestWithHeaders(ctx, http.MethodPut, "/api/v1/settings/"+url.PathEscape(key), body, headers)
	if err != nil {
		return apperrors.Internal("settings service unreachable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.Internal(GetErrorMessage(resp), nil)
	}
	return nil
}
