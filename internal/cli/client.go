package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// RequestResponse — запись истории из API.
type RequestResponse struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Status        string `json:"status"`
	Response      string `json:"response,omitempty"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
	StartedAt     string `json:"started_at,omitempty"`
	FinishedAt    string `json:"finished_at,omitempty"`
}

// DeviceResponse — устройство из API.
type DeviceResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Zone         string         `json:"zone"`
	Type         string         `json:"type"`
	Capabilities []string       `json:"capabilities"`
	State        map[string]any `json:"state,omitempty"`
}

// ProgressEvent — событие обработки команды из SSE-потока.
type ProgressEvent struct {
	Sequence  uint64 `json:"sequence"`
	Step      string `json:"step"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Terminal  bool   `json:"terminal"`
	Err       string `json:"error,omitempty"`
}

// --- Request types ---

// CommandRequest — отправка команды.
type CommandRequest struct {
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Hearth API.
type Client struct {
	baseURL string

	// streamClient без таймаута: /commands/stream держит соединение
	// на всё время обработки команды.
	streamClient *http.Client
	httpClient   *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		streamClient: &http.Client{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StreamCommand отправляет команду и вызывает fn для каждого события
// обработки вплоть до терминального.
func (c *Client) StreamCommand(text, correlationID string, fn func(ProgressEvent) error) error {
	data, err := json.Marshal(CommandRequest{Text: text, CorrelationID: correlationID})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/commands/stream", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}

		if err := fn(ev); err != nil {
			return err
		}
		if ev.Terminal {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream interrupted: %w", err)
	}

	return fmt.Errorf("event stream ended without a terminal event")
}

// ListDevices возвращает устройства реестра.
func (c *Client) ListDevices(zone string) ([]DeviceResponse, error) {
	params := url.Values{}
	if zone != "" {
		params.Set("zone", zone)
	}

	var devices []DeviceResponse
	err := c.list("/api/v1/devices", params, &devices)
	return devices, err
}

// GetDevice возвращает устройство по ID.
func (c *Client) GetDevice(id string) (*DeviceResponse, error) {
	var device DeviceResponse
	err := c.get("/api/v1/devices/"+id, &device)
	return &device, err
}

// ListRequests возвращает последние запросы из истории.
func (c *Client) ListRequests(limit int) ([]RequestResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var requests []RequestResponse
	err := c.list("/api/v1/requests", params, &requests)
	return requests, err
}

// GetRequest возвращает запрос по ID.
func (c *Client) GetRequest(id string) (*RequestResponse, error) {
	var request RequestResponse
	err := c.get("/api/v1/requests/"+id, &request)
	return &request, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
