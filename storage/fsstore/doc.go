// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package fsstore implements storage.RecordStore with one file per record
// under a root directory.
//
// The file name is the record name and the file content is the record
// content, with no header or metadata wrapper. Write replaces a record by
// writing a uniquely named temporary sibling, syncing it and renaming it
// over the record, so an interrupted write never exposes partial content.
// Temporary files left behind by a crash are removed when the store opens.
//
// The store works on any hackpadfs.FS that supports OpenFile, Rename, Remove
// and MkdirAll. Open uses the operating system filesystem; tests can pass an
// in-memory filesystem to New.
package fsstore
