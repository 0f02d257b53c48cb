package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "activity":
		handleActivity(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: activities <command> <subcommand> [flags]

Commands:
  auth register    Create an account
  auth login       Log in and store the bearer token
  auth who         Show the logged-in user
  auth logout      Discard the stored token
  activity list    List activities with seat counts
  activity create  Add an activity to the catalog
  activity signup  Sign a user up for an activity
  activity leave   Withdraw a user from an activity`)
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: activities auth <register|login|who|logout>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "who":
		whoAmI()
	case "logout":
		logoutUser()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleActivity(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: activities activity <list|create|signup|leave>")
		return
	}

	switch args[0] {
	case "list":
		listActivities()
	case "create":
		createActivity(args[1:])
	case "signup":
		signup(args[1:])
	case "leave":
		unregister(args[1:])
	default:
		fmt.Printf("unknown activity command: %s\n", args[0])
	}
}

func serverURL() string {
	if url := os.Getenv("ACTIVITIES_SERVER"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".activities-token"
	}
	return filepath.Join(home, ".activities", "token")
}

func saveToken(token string) error {
	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func loadToken() string {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "email and password are required")
		os.Exit(1)
	}

	body := map[string]string{
		"email":      *email,
		"first_name": *firstName,
		"last_name":  *lastName,
		"password":   *password,
	}
	var out map[string]interface{}
	if err := postJSON("/api/register", body, &out); err != nil {
		fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("registered %s\n", out["email"])
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	body := map[string]string{"email": *email, "password": *password}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := postJSON("/api/login", body, &out); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	if err := saveToken(out.AccessToken); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("logged in, token valid for %d seconds\n", out.ExpiresIn)
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Fprintln(os.Stderr, "not logged in")
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodGet, serverURL()+"/api/me", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var out map[string]interface{}
	if err := doJSON(req, &out); err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s (%s %s, role %s)\n", out["email"], out["first_name"], out["last_name"], out["role"])
}

func logoutUser() {
	if err := os.Remove(tokenPath()); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "logout failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("logged out")
}

func listActivities() {
	resp, err := http.Get(serverURL() + "/api/activities")
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var activities []struct {
		ID                  int64  `json:"id"`
		Name                string `json:"name"`
		Schedule            string `json:"schedule"`
		MaxParticipants     int    `json:"max_participants"`
		CurrentParticipants int    `json:"current_participants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		fmt.Fprintf(os.Stderr, "bad response: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSCHEDULE\tSEATS")
	for _, a := range activities {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\n", a.ID, a.Name, a.Schedule, a.CurrentParticipants, a.MaxParticipants)
	}
	w.Flush()
}

func createActivity(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "activity name")
	description := fs.String("description", "", "description")
	schedule := fs.String("schedule", "", "schedule text")
	max := fs.Int("max", 0, "max participants")
	fs.Parse(args)

	body := map[string]interface{}{
		"name":             *name,
		"description":      *description,
		"schedule":         *schedule,
		"max_participants": *max,
	}
	var out map[string]interface{}
	if err := postJSON("/api/activities", body, &out); err != nil {
		fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created activity %v: %v\n", out["id"], out["name"])
}

func signup(args []string) {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	id := fs.Int64("id", 0, "activity id")
	email := fs.String("email", "", "user email")
	fs.Parse(args)

	url := fmt.Sprintf("%s/api/activities/%d/signup?email=%s", serverURL(), *id, *email)
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}

	var out map[string]string
	if err := doJSON(req, &out); err != nil {
		fmt.Fprintf(os.Stderr, "signup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out["message"])
}

func unregister(args []string) {
	fs := flag.NewFlagSet("leave", flag.ExitOnError)
	id := fs.Int64("id", 0, "activity id")
	email := fs.String("email", "", "user email")
	fs.Parse(args)

	url := fmt.Sprintf("%s/api/activities/%d/unregister?email=%s", serverURL(), *id, *email)
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}

	var out map[string]string
	if err := doJSON(req, &out); err != nil {
		fmt.Fprintf(os.Stderr, "unregister failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out["message"])
}

func postJSON(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL()+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(req, out)
}

func doJSON(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
