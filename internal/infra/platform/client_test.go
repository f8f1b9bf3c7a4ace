package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
)

const exportCSV = "Метка времени,ФИО,Задание,Проверяющий,Оценка\n" +
	"25.05.2025 18:39:30,Соляник Егор Юрьевич,socow-vector,Иванов И.,10\n" +
	"26.05.2025 10:00:00,Соляник Егор Юрьевич,bigint,Иванов И.,\n" +
	"27.05.2025 12:30:00,Соляник Егор Юрьевич,intrusive-list,,\n"

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func testStudent() *student.Student {
	return &student.Student{ID: 1, ChatID: 100, PlatformLogin: "esolyanik", PlatformPassword: "secret"}
}

func newTestServer(t *testing.T, signinStatus int, exportHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		if signinStatus != http.StatusOK {
			w.WriteHeader(signinStatus)
			return
		}
		w.Write([]byte(`{"access_token":"tok-1","verified":true}`))
	})
	mux.HandleFunc("/api/v1/grading/export", exportHandler)
	return httptest.NewServer(mux)
}

func TestFetchSnapshot_MapsExport(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "esolyanik", r.URL.Query().Get("login"))
		w.Write([]byte(exportCSV))
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, testLogger())
	snap, err := client.FetchSnapshot(context.Background(), testStudent())

	require.NoError(t, err)
	require.Len(t, snap, 3)

	passed := snap["25.05.2025 18:39:30|socow-vector"]
	assert.Equal(t, "socow-vector", passed.TaskName)
	assert.Equal(t, parcel.StatusPassed, passed.Status)
	assert.Equal(t, time.Date(2025, 5, 25, 18, 39, 30, 0, time.UTC), passed.UpdatedAt)

	assert.Equal(t, parcel.StatusChecking, snap["26.05.2025 10:00:00|bigint"].Status)
	assert.Equal(t, parcel.StatusPending, snap["27.05.2025 12:30:00|intrusive-list"].Status)
}

func TestFetchSnapshot_ReauthenticatesOnExpiredSession(t *testing.T) {
	exportCalls := 0
	srv := newTestServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		exportCalls++
		if exportCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(exportCSV))
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, testLogger())
	snap, err := client.FetchSnapshot(context.Background(), testStudent())

	require.NoError(t, err)
	assert.Equal(t, 2, exportCalls)
	assert.Len(t, snap, 3)
}

func TestFetchSnapshot_PermanentAuthFailure(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized, func(w http.ResponseWriter, r *http.Request) {
		t.Error("export must not be called when signin fails")
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, testLogger())
	_, err := client.FetchSnapshot(context.Background(), testStudent())

	assert.ErrorIs(t, err, ErrAuth)
}

func TestFetchSnapshot_AuthFailureAfterReauth(t *testing.T) {
	// Every export call is rejected even though signin succeeds: after the
	// single re-auth retry the client gives up with an auth error.
	exportCalls := 0
	srv := newTestServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		exportCalls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, testLogger())
	_, err := client.FetchSnapshot(context.Background(), testStudent())

	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 2, exportCalls)
}

func TestFetchSnapshot_ServerErrorIsTransient(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, testLogger())
	_, err := client.FetchSnapshot(context.Background(), testStudent())

	assert.ErrorIs(t, err, ErrTransient)
}

func TestFetchSnapshot_TimeoutIsTransient(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(exportCSV))
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, testLogger())
	_, err := client.FetchSnapshot(context.Background(), testStudent())

	assert.ErrorIs(t, err, ErrTransient)
}

func TestFetchSnapshot_MissingColumnIsParseError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Метка времени,ФИО,Задание\n25.05.2025 18:39:30,Игорь,socow-vector\n"))
	})
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, testLogger())
	_, err := client.FetchSnapshot(context.Background(), testStudent())

	assert.ErrorIs(t, err, ErrParse)
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		reviewer string
		grade    string
		want     parcel.Status
	}{
		{"no reviewer, no grade", "", "", parcel.StatusPending},
		{"reviewer assigned", "Иванов И.", "", parcel.StatusChecking},
		{"graded non-zero", "Иванов И.", "8", parcel.StatusPassed},
		{"graded fractional", "Иванов И.", "7,5", parcel.StatusPassed},
		{"graded zero", "Иванов И.", "0", parcel.StatusFailed},
		{"resubmission requested", "Иванов И.", "пересдача", parcel.StatusNeedsReview},
		{"non-numeric grade counts as passed", "Иванов И.", "зачёт", parcel.StatusPassed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveStatus(tc.reviewer, tc.grade))
		})
	}
}
