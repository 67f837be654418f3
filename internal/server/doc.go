// Package server exposes the HTTP monitoring and frame retrieval API.
package server
