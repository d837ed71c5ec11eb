/*
Package archive converts contact recipients between the live stores and
backup frames.

The ContactArchiver reads all contact recipients inside a read transaction
and writes one recipient frame per recipient. A recipient that fails to
archive is recorded in the ArchiveResult and the pass continues. Recipients
without any identifier are skipped without an error.

The ContactRestorer applies one frame at a time inside a write transaction.
It is safe to run against a database that already contains some of the
recipients: existing records are merged instead of inserted again, and the
block, whitelist and hide side effects are idempotent.

Recipient ids are only valid within one pass. An ArchivingContext assigns
them during archival, a RestoringContext records them during restore so
that later frames can resolve references to recipients restored earlier.
Neither context is safe for concurrent use.
*/
package archive
