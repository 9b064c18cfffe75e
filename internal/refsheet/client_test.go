package refsheet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"google.golang.org/api/option"

	"ortkod/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func testClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	cfg := config.Config{
		ReferenceSpreadsheetID: "ref-id",
		ReferenceRange:         "Makro Kontrol!A:G",
		ImportSpreadsheetID:    "import-id",
		ImportRange:            "Test!A2:AD2",
	}
	client, err := newClient(context.Background(), cfg,
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithEndpoint("https://sheets.test/"),
	)
	require.NoError(t, err)
	client.backoff = func(int) time.Duration { return 0 }
	return client
}

func TestFetchReferenceCodeTableWithRetry(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, "/v4/spreadsheets/ref-id/values/") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		attempt++
		if attempt == 1 {
			return jsonResponse(http.StatusServiceUnavailable, `{"error":{"code":503,"message":"backend"}}`), nil
		}
		return jsonResponse(http.StatusOK, `{"range":"Makro Kontrol!A1:G3","values":[["Onay","","","Onay2","","","Kod"],["TRUE","","","true","","","RIT.VX1"],["false"]]}`), nil
	})

	rows, err := client.FetchReferenceCodeTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
	require.Len(t, rows, 3)
	assert.Equal(t, "RIT.VX1", rows[1][6])
	assert.Equal(t, []string{"false"}, rows[2])
}

func TestFetchReferenceCodeTableWrapsFailure(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		return jsonResponse(http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`), nil
	})

	_, err := client.FetchReferenceCodeTable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReferenceUnavailable))
	assert.Equal(t, 1, attempt)
}

func TestAppendRows(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":append") {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		assert.Equal(t, "INSERT_ROWS", r.URL.Query().Get("insertDataOption"))

		var body struct {
			Values [][]string `json:"values"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Values, 1)
		assert.Equal(t, "OLD-1", body.Values[0][6])

		return jsonResponse(http.StatusOK, `{"spreadsheetId":"import-id","updates":{"updatedRange":"Test!A2:K2","updatedRows":1}}`), nil
	})

	rows, err := BuildImportRows("replacements", []map[string]string{{"Orijinal": "OLD-1", "Yeni": "NEW-1"}})
	require.NoError(t, err)

	updated, err := client.AppendRows(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, "Test!A2:K2", updated)
}

func TestNewClientRequiresReferenceSheet(t *testing.T) {
	_, err := newClient(context.Background(), config.Config{ReferenceRange: "Makro Kontrol!A:G"},
		option.WithHTTPClient(&http.Client{}),
	)
	assert.EqualError(t, err, "missing required env var: REFERENCE_SPREADSHEET_ID")
}

func TestAppendRowsRequiresImportSheet(t *testing.T) {
	called := false
	client, err := newClient(context.Background(),
		config.Config{ReferenceSpreadsheetID: "ref-id", ReferenceRange: "Makro Kontrol!A:G"},
		option.WithHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			called = true
			return jsonResponse(http.StatusOK, `{}`), nil
		})}),
		option.WithEndpoint("https://sheets.test/"),
	)
	require.NoError(t, err)

	_, err = client.AppendRows(context.Background(), [][]string{{"a"}})
	assert.EqualError(t, err, "missing required env var: IMPORT_SPREADSHEET_ID")
	assert.False(t, called)

	rows, err := client.FetchReferenceCodeTable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.True(t, called)
}

func TestLoadCredentials(t *testing.T) {
	_, err := loadCredentials(config.Config{GoogleCredentialsFile: t.TempDir() + "/missing.json"})
	assert.True(t, errors.Is(err, ErrCredentialsMissing))

	raw, err := loadCredentials(config.Config{GoogleCredentialsBase64: "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0="})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(raw))

	_, err = loadCredentials(config.Config{GoogleCredentialsBase64: "%%%"})
	assert.Error(t, err)
}
