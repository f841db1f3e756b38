// Package fs stores resources as JSON documents through afs. It implements
// compensation.ResourceClient, so generic inverses of create, update and
// delete operations can be replayed against any afs backed storage.
package fs
