// Package fixture builds synthetic HFS images for tests.
//
// [BuildTree] bulk-loads sorted records into a B*-tree file, and [Builder]
// lays out a whole volume: header, bitmap, catalog and Extents-Overflow
// trees, and file contents. Options cover the awkward cases a reader must
// handle, such as fragmented forks, deep catalogs, container prefixes and
// partition maps.
//
//	b := fixture.New("Test Disk")
//	apps := b.Dir(catalog.RootID, "Apps")
//	b.File(apps, "Game.bin", data, fixture.TypeCreator("APPL", "GAME"))
//	img, err := b.Build()
package fixture
