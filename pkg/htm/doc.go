/*
Package htm implements the Hierarchical Triangular Mesh trixel algebra
used by the geo index: set operations (OR/AND/XOR) over lists of
trixel names, range merging for the max-level storage representation,
and the sibling-expansion helper XOR needs to describe a "hole" cut
out of a shallower trixel by a deeper one.

A trixel name is a string over the alphabet {0,1,2,3}; each character
descends one level, so a name of length n identifies a cell at depth
n whose four children are name+"0" .. name+"3". Name A "covers" name B
exactly when A is a (possibly equal) prefix of B — A is shallower
(or equal depth) and contains B's area.

cover() itself — turning a geometry into a set of trixel names — is
a black box per the specification; only its signature (Coverer) lives
here.
*/
package htm
