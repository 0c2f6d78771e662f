// Command pipeline_smoke walks one application through the whole admissions
// pipeline against a running instance. Intended for staging checks after a
// deploy, not for CI.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type application struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Stage     string `json:"stage"`
}

var (
	baseURL = flag.String("base-url", "http://localhost:8080/api/v1", "API base URL")
	token   = flag.String("token", "", "bearer token with ADMIN capabilities")
	grade   = flag.String("grade", "Grade 4", "grade level to apply for")
)

func main() {
	flag.Parse()
	if *token == "" {
		log.Fatal("a -token with ADMIN capabilities is required")
	}
	client := &http.Client{Timeout: 15 * time.Second}

	app := submit(client)
	log.Printf("submitted %s (stage %s)", app.Reference, app.Stage)

	for _, docType := range []string{"birth_certificate", "passport_photo", "parent_id"} {
		upload(client, app.ID, docType)
		verify(client, app.ID, docType)
		log.Printf("verified %s", docType)
	}

	steps := []struct {
		stage   string
		payload map[string]interface{}
	}{
		{"documents_verified", nil},
		{"interview_pending", map[string]interface{}{
			"interview": map[string]interface{}{
				"scheduledAt": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
				"location":    "Main Hall",
				"assessorId":  "smoke-assessor",
			},
		}},
		{"interview_completed", map[string]interface{}{
			"assessment": map[string]interface{}{"result": "pass", "score": 80},
		}},
		{"placement_offered", map[string]interface{}{
			"placement": map[string]interface{}{"classId": "smoke-class"},
		}},
		{"payment_pending", map[string]interface{}{"accepted": true}},
		{"payment_recorded", map[string]interface{}{
			"payment": map[string]interface{}{"amount": 1000, "method": "cash", "reference": "SMOKE-1"},
		}},
		{"enrolled", map[string]interface{}{
			"enrollment": map[string]interface{}{"studentId": "smoke-student"},
		}},
	}
	for _, step := range steps {
		app = advance(client, app.ID, step.stage, step.payload)
		log.Printf("advanced to %s", app.Stage)
	}

	if app.Stage != "enrolled" {
		log.Fatalf("pipeline ended in %s, expected enrolled", app.Stage)
	}
	log.Printf("pipeline smoke passed for %s", app.Reference)
}

func submit(client *http.Client) application {
	body := map[string]interface{}{
		"applicant": map[string]interface{}{
			"firstName":     "Smoke",
			"lastName":      "Test",
			"dateOfBirth":   "2017-01-15",
			"gender":        "female",
			"gradeApplying": *grade,
		},
		"guardian": map[string]interface{}{
			"name":  "Smoke Guardian",
			"phone": "+254700000000",
		},
	}
	var app application
	request(client, http.MethodPost, "/admissions", body, &app)
	return app
}

func advance(client *http.Client, id, stage string, payload map[string]interface{}) application {
	body := map[string]interface{}{"toStage": stage}
	if payload != nil {
		body["payload"] = payload
	}
	var app application
	request(client, http.MethodPost, "/admissions/"+id+"/advance", body, &app)
	return app
}

func upload(client *http.Client, id, docType string) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	_ = writer.WriteField("type", docType)
	part, err := writer.CreateFormFile("file", docType+".pdf")
	if err != nil {
		log.Fatalf("build upload: %v", err)
	}
	_, _ = io.Copy(part, strings.NewReader("%PDF-1.4 smoke"))
	_ = writer.Close()

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/admissions/"+id+"/documents", buf)
	if err != nil {
		log.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+*token)
	do(client, req, nil)
}

func verify(client *http.Client, id, docType string) {
	request(client, http.MethodPost, "/admissions/"+id+"/documents/"+docType+"/verify", nil, nil)
}

func request(client *http.Client, method, path string, body interface{}, out interface{}) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("encode %s %s: %v", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, *baseURL+path, reader)
	if err != nil {
		log.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+*token)
	do(client, req, out)
}

func do(client *http.Client, req *http.Request, out interface{}) {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		log.Fatalf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, raw)
	}
	if out == nil {
		return
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Fatalf("decode %s %s: %v", req.Method, req.URL.Path, err)
	}
	if env.Error != nil {
		log.Fatalf("%s %s failed: %s %s", req.Method, req.URL.Path, env.Error.Code, env.Error.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		log.Fatalf("decode data for %s %s: %v", req.Method, req.URL.Path, err)
	}
}
