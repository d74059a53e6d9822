package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urbanrasoi/chef-client/internal/models"
)

// TokenSource supplies the current bearer token, or "" when no session
// exists. The gateway attaches it to every backend request.
type TokenSource func() string

// HTTPGateway talks to the chef backend over HTTP and to the
// OpenStreetMap reverse-geocoding service for addresses.
type HTTPGateway struct {
	baseURL    string
	geocodeURL string
	client     *http.Client
	token      TokenSource
}

var _ RemoteGateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a gateway rooted at baseURL (the host; the
// "/api" prefix is added here).
func NewHTTPGateway(baseURL, geocodeURL string, timeout time.Duration, token TokenSource) *HTTPGateway {
	if token == nil {
		token = func() string { return "" }
	}
	return &HTTPGateway{
		baseURL:    baseURL,
		geocodeURL: geocodeURL,
		client:     &http.Client{Timeout: timeout},
		token:      token,
	}
}

func (g *HTTPGateway) Login(ctx context.Context, phone string) (*LoginResult, error) {
	var res LoginResult
	err := g.doJSON(ctx, http.MethodPost, "/chef/login", map[string]string{"phone_number": phone}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *HTTPGateway) VerifyOTP(ctx context.Context, phone, code string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"phone_number": phone, "otp": code}
	if err := g.doJSON(ctx, http.MethodPost, "/chef/verify-otp", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *HTTPGateway) FetchProfile(ctx context.Context) (*models.ChefDTO, error) {
	var dto models.ChefDTO
	if err := g.doJSON(ctx, http.MethodGet, "/chef/profile", nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// updateResponse wraps the backend's profile-update answer.
type updateResponse struct {
	Updated models.ProfileUpdate `json:"updated"`
}

func (g *HTTPGateway) UpdateProfile(ctx context.Context, patch ProfilePatch) (*models.ProfileUpdate, error) {
	var res updateResponse
	var err error
	if patch.ImagePath != nil {
		err = g.doMultipart(ctx, "/chef/profile/update", profileForm(patch), *patch.ImagePath, "profile_image", &res)
	} else {
		err = g.doJSON(ctx, http.MethodPost, "/chef/profile/update", profileBody(patch), &res)
	}
	if err != nil {
		return nil, err
	}
	return &res.Updated, nil
}

func (g *HTTPGateway) UpdateFoodStyles(ctx context.Context, styles []string) ([]string, error) {
	var res updateResponse
	body := map[string][]string{"food_styles": styles}
	if err := g.doJSON(ctx, http.MethodPost, "/chef/profile/update", body, &res); err != nil {
		return nil, err
	}
	if res.Updated.FoodStyles == nil {
		return styles, nil
	}
	return *res.Updated.FoodStyles, nil
}

// addItemResponse wraps the backend's add-item answer; item_id is
// authoritative even when the embedded item omits it.
type addItemResponse struct {
	ItemID string          `json:"item_id"`
	Item   models.MenuItem `json:"item"`
}

func (g *HTTPGateway) AddMenuItem(ctx context.Context, item models.MenuItem) (*models.MenuItem, error) {
	var res addItemResponse
	if err := g.doMultipart(ctx, "/chef/item/add", menuItemForm(item), item.PhotoRef, "photo", &res); err != nil {
		return nil, err
	}
	confirmed := res.Item
	if confirmed.ID == "" {
		confirmed.ID = res.ItemID
	}
	return &confirmed, nil
}

func (g *HTTPGateway) UpdateMenuItem(ctx context.Context, id string, item models.MenuItem) (*models.MenuItem, error) {
	var res struct {
		Item models.MenuItem `json:"item"`
	}
	path := "/chef/item/update/" + url.PathEscape(id)
	if err := g.doMultipart(ctx, path, menuItemForm(item), item.PhotoRef, "photo", &res); err != nil {
		return nil, err
	}
	return &res.Item, nil
}

func (g *HTTPGateway) DeleteMenuItem(ctx context.Context, id string) error {
	var res struct {
		Success bool `json:"success"`
	}
	path := "/chef/item/" + url.PathEscape(id)
	if err := g.doJSON(ctx, http.MethodDelete, path, nil, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("backend refused to delete item %s", id)
	}
	return nil
}

func (g *HTTPGateway) DeleteAllMenuItems(ctx context.Context) error {
	var res struct {
		Success bool `json:"success"`
	}
	if err := g.doJSON(ctx, http.MethodDelete, "/chef/items", nil, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("backend refused to delete menu")
	}
	return nil
}

func (g *HTTPGateway) GetOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	path := "/chef/orders?status=" + url.QueryEscape(string(filter))
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *HTTPGateway) GetOrderDetails(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := g.doJSON(ctx, http.MethodGet, "/chef/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (g *HTTPGateway) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	var res struct {
		Success bool `json:"success"`
	}
	body := map[string]string{"status": string(status)}
	if err := g.doJSON(ctx, http.MethodPut, "/chef/orders/"+url.PathEscape(id), body, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("backend refused status %q for order %s", status, id)
	}
	return nil
}

func (g *HTTPGateway) PushLocation(ctx context.Context, lat, lng float64) error {
	// The backend expects string-typed coordinates on this endpoint.
	body := map[string]string{
		"latitude":  strconv.FormatFloat(lat, 'f', -1, 64),
		"longitude": strconv.FormatFloat(lng, 'f', -1, 64),
	}
	var res struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/cheflocation/update", body, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("location push rejected: %s", res.Message)
	}
	return nil
}

func (g *HTTPGateway) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	endpoint := fmt.Sprintf("%s/reverse?lat=%s&lon=%s&format=json",
		g.geocodeURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode request failed with status %d", resp.StatusCode)
	}

	var res struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if res.DisplayName == "" {
		return "", fmt.Errorf("address not found for (%v, %v)", lat, lng)
	}
	return res.DisplayName, nil
}

// doJSON performs a JSON request against the backend API and decodes
// the response into out when out is non-nil.
func (g *HTTPGateway) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/api"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	g.authorize(req)

	return g.send(req, out)
}

// doMultipart posts a multipart form. When filePath is non-empty the
// file is attached under fileField.
func (g *HTTPGateway) doMultipart(ctx context.Context, path string, fields map[string]string, filePath, fileField string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open upload file: %w", err)
		}
		defer func() { _ = file.Close() }()

		part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return fmt.Errorf("failed to copy upload file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api"+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	g.authorize(req)

	return g.send(req, out)
}

func (g *HTTPGateway) authorize(req *http.Request) {
	if token := g.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (g *HTTPGateway) send(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func profileBody(patch ProfilePatch) map[string]any {
	body := map[string]any{}
	for k, v := range profileForm(patch) {
		body[k] = v
	}
	if patch.FoodStyles != nil {
		body["food_styles"] = *patch.FoodStyles
	}
	return body
}

func profileForm(patch ProfilePatch) map[string]string {
	fields := map[string]string{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Email != nil {
		fields["email"] = *patch.Email
	}
	if patch.NativePlace != nil {
		fields["native_place"] = *patch.NativePlace
	}
	if patch.AadharNumber != nil {
		fields["aadhar_number"] = *patch.AadharNumber
	}
	return fields
}

func menuItemForm(item models.MenuItem) map[string]string {
	return map[string]string{
		"food_name":    item.FoodName,
		"food_style":   item.FoodStyle,
		"food_type":    string(item.FoodType),
		"quantity":     strconv.Itoa(item.Quantity),
		"price":        strconv.FormatFloat(item.Price, 'f', -1, 64),
		"off_percent":  strconv.FormatFloat(item.OffPercent, 'f', -1, 64),
		"service_type": string(item.ServiceType),
		"is_available": strconv.FormatBool(item.IsAvailable),
	}
}
