// Package graph is the authoritative in-memory collection of canvas nodes.
//
// There is no separate edge entity: edges are derived from each node's
// ordered Connections list. Group membership is a weak relation computed by
// scanning ParentGroupID; groups never enumerate their children.
package graph
