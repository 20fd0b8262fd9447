// Package memory provides the in-process session store.
package memory
