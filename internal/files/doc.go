// Package files owns the on-disk layout shared by the services.
//
// All writers go through WriteAtomic (create directories, write a temp file,
// rename) so readers never observe partial content. Nothing here deletes
// files; stale files are a tolerated footprint.
package files
