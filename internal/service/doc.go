// Package service holds the operations behind still's commands. Services
// take their collaborators as interfaces and know nothing about flags or
// terminal output.
package service
