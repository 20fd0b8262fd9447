/*
Package topology loads graph wiring from YAML or JSON files.

Node behaviour stays in Go: a topology only names registered node functions and
decisions and says how they connect. A file looks like:

	entry: router
	fields:
	  - {name: messages, policy: append}
	  - {name: intent}
	nodes:
	  - id: router
	    writes: [intent]
	    next:
	      decision: route_intent
	      routes: {mechanics: mechanics, narrator: narrator}
	  - id: mechanics
	    next: {to: narrator}
	  - id: narrator
	    use: narrate
	    next: {end: true}

"use" defaults to the node id. Decoding goes through a generic map and
mapstructure, so unknown keys are rejected in both formats.
*/
package topology
