// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	pb "gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/provernet/bastion/kv"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/node"
)

// snapshot file layout: magic, then a snappy stream of
// uvarint-length-prefixed key/value pairs in key order.
const snapshotMagic = "bastion-snapshot-v1\n"

func exportAction(ctx *cli.Context) error {
	initLogger(ctx)
	out := ctx.String(outFlag.Name)
	if out == "" {
		fatal(fmt.Sprintf("snapshot output file required: use -%s", outFlag.Name))
	}

	store := openStore(ctx, makeDataDir(ctx))
	defer store.Close()

	var total int64
	iter := store.Iterate(kv.Range{})
	for iter.Next() {
		total++
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	file, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create snapshot file")
	}
	defer file.Close()
	if _, err := file.WriteString(snapshotMagic); err != nil {
		return err
	}
	writer := snappy.NewBufferedWriter(file)

	bar := pb.New64(total).Start()
	defer bar.Finish()

	varint := make([]byte, binary.MaxVarintLen64)
	writeChunk := func(chunk []byte) error {
		n := binary.PutUvarint(varint, uint64(len(chunk)))
		if _, err := writer.Write(varint[:n]); err != nil {
			return err
		}
		_, err := writer.Write(chunk)
		return err
	}

	iter = store.Iterate(kv.Range{})
	defer iter.Release()
	for iter.Next() {
		if err := writeChunk(iter.Key()); err != nil {
			return err
		}
		if err := writeChunk(iter.Value()); err != nil {
			return err
		}
		bar.Increment()
	}
	if err := iter.Error(); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	log.Info("snapshot exported", "pairs", total, "path", out)
	return nil
}

// readSnapshot streams the decoded pairs of a snapshot file to fn.
func readSnapshot(path string, fn func(key, value []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open snapshot file")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	bar := pb.New64(info.Size()).SetUnits(pb.U_BYTES).Start()
	defer bar.Finish()
	proxy := bar.NewProxyReader(file)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(proxy, magic); err != nil || string(magic) != snapshotMagic {
		return errors.Errorf("%s is not a snapshot file", path)
	}

	reader := bufio.NewReader(snappy.NewReader(proxy))
	readChunk := func() ([]byte, error) {
		size, err := binary.ReadUvarint(reader)
		if err != nil {
			return nil, err
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(reader, chunk); err != nil {
			return nil, err
		}
		return chunk, nil
	}

	for {
		key, err := readChunk()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "malformed snapshot")
		}
		value, err := readChunk()
		if err != nil {
			return errors.Wrap(err, "malformed snapshot")
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

func importAction(ctx *cli.Context) error {
	initLogger(ctx)
	in := ctx.String(inFlag.Name)
	if in == "" {
		fatal(fmt.Sprintf("snapshot input file required: use -%s", inFlag.Name))
	}

	store := openStore(ctx, makeDataDir(ctx))
	defer store.Close()

	bulk := store.Bulk()
	bulk.EnableAutoFlush()

	var total int64
	if err := readSnapshot(in, func(key, value []byte) error {
		total++
		return bulk.Put(key, value)
	}); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return err
	}

	log.Info("snapshot imported", "pairs", total, "path", in)
	return nil
}

func diffAction(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		fatal("two snapshot files required")
	}
	pathA, pathB := ctx.Args().Get(0), ctx.Args().Get(1)

	listing := func(path string) ([]string, error) {
		var lines []string
		err := readSnapshot(path, func(key, value []byte) error {
			lines = append(lines, fmt.Sprintf("%s\t%s\n", hex.EncodeToString(key), hex.EncodeToString(value)))
			return nil
		})
		return lines, err
	}

	linesA, err := listing(pathA)
	if err != nil {
		return err
	}
	linesB, err := listing(pathB)
	if err != nil {
		return err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        linesA,
		B:        linesB,
		FromFile: pathA,
		ToFile:   pathB,
		Context:  3,
	})
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Println("snapshots are identical")
		return nil
	}
	fmt.Print(diff)
	return nil
}

func dumpAction(ctx *cli.Context) error {
	initLogger(ctx)

	store := openStore(ctx, makeDataDir(ctx))
	defer store.Close()

	host := node.New(store, nil, nil)
	defer host.Close()

	summaries, err := host.Provers()
	if err != nil {
		return err
	}
	treasury, err := host.Treasury()
	if err != nil {
		return err
	}

	spew.Fdump(os.Stdout, summaries)
	spew.Fdump(os.Stdout, treasury)
	return nil
}
