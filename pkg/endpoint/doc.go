// Package endpoint implements the normalized (node, path) addressing
// model: parsing a URI-shaped string into an Endpoint, normalizing its
// path component, and folding a set of Endpoints into a single
// order-independent hash for cluster routing.
package endpoint
