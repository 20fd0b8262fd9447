// Package registry resolves the names used in topology files to node functions and decisions.
package registry
