// Package binary installs precompiled bottles: it downloads a bottle blob,
// verifies it, unpacks it into the tools root and links its executable.
//
// # Security Model
//
// Every bottle is content-addressed. The blob URL carries the expected
// sha-256 ("…/blobs/sha256:<hex>") and the downloaded payload must hash to
// it before anything touches the disk. If the formula also declares a
// sha256, the two must agree. Archive entries that would land outside the
// extraction directory are rejected.
//
// # Pipeline
//
//	resolve  -> formula.Resolver picks the formula record
//	select   -> formula.Selector picks the bottle for the platform key
//	fetch    -> Fetcher exchanges a pull token and downloads the blob
//	verify   -> VerifyDigest checks the sha-256
//	extract  -> Extractor unpacks into <tools_root>/<name>/<version>
//	activate -> Activator links the executable into the bin root
//
// # Usage
//
//	mgr, err := binary.NewManager(binary.Config{
//	    ToolsRoot:   profile.ToolsRoot,
//	    BinRoot:     profile.BinRoot,
//	    PlatformKey: info.Key(),
//	    Source:      formula.NewClient(formula.ClientConfig{}),
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := mgr.Install(ctx, toolspec.MustParse("ripgrep@latest"))
//
// No stage retries. A failed install can leave a partial tree or a stray
// ".tmp_extract-*" directory behind; installing again replaces it.
package binary
