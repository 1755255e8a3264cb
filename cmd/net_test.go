package main

import (
	"testing"
)

func TestSplitHostPortDefault(t *testing.T) {
	host, port, err := splitHostPort("192.168.0.42", 8080)
	if err != nil {
		t.Fatal(err)
	}
	if host != "192.168.0.42" || port != "8080" {
		t.Fatalf("expected 192.168.0.42:8080, actual %s:%s", host, port)
	}
}

func TestSplitHostPortExplicit(t *testing.T) {
	host, port, err := splitHostPort("10.0.0.1:9000", 8080)
	if err != nil {
		t.Fatal(err)
	}
	if host != "10.0.0.1" || port != "9000" {
		t.Fatalf("expected 10.0.0.1:9000, actual %s:%s", host, port)
	}
}

func TestNodeURL(t *testing.T) {
	cases := map[string]string{
		"localhost":               "http://localhost:8080",
		":9000":                   "http://localhost:9000",
		"10.0.0.1:9000":           "http://10.0.0.1:9000",
		"https://node.example":    "https://node.example:8080",
		"https://node.example:99": "https://node.example:99",
		"http://[::1]:7000":       "http://[::1]:7000",
	}
	for in, expected := range cases {
		actual, err := nodeURL(in, defaultPort)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if actual != expected {
			t.Fatalf("%s: expected %s, actual %s", in, expected, actual)
		}
	}
}

func TestNodeURLRejectsScheme(t *testing.T) {
	if _, err := nodeURL("ftp://node", defaultPort); err == nil {
		t.Fatal("expected an error for ftp scheme")
	}
}
