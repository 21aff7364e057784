/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func assertOrthogonal(t *testing.T, pts []Pt) {
	t.Helper()
	for i := 1; i < len(pts); i++ {
		if pts[i].X != pts[i-1].X && pts[i].Y != pts[i-1].Y {
			t.Fatalf("segment %d is diagonal: %v -> %v", i, pts[i-1], pts[i])
		}
	}
}

func TestRouteConnectorStraight(t *testing.T) {
	pts := RouteConnector(R(0, 0, 100, 40), R(200, 0, 100, 40), RouteOptions{})
	if len(pts) != 2 {
		t.Fatalf("level blocks should route straight, got %v", pts)
	}
	if pts[0] != (Pt{100, 20}) || pts[1] != (Pt{200, 20}) {
		t.Fatalf("route = %v", pts)
	}
}

func TestRouteConnectorZ(t *testing.T) {
	pts := RouteConnector(R(0, 0, 100, 40), R(200, 100, 100, 40), RouteOptions{})
	if len(pts) != 4 {
		t.Fatalf("offset blocks should route as a Z, got %v", pts)
	}
	assertOrthogonal(t, pts)
	if pts[0] != (Pt{100, 20}) || pts[3] != (Pt{200, 120}) {
		t.Fatalf("endpoints = %v", pts)
	}
	if pts[1].X != 150 || pts[2].X != 150 {
		t.Fatalf("Z should turn at the midpoint, got %v", pts)
	}
}

func TestRouteConnectorBackwardLoopsAround(t *testing.T) {
	from := R(200, 0, 100, 40)
	to := R(0, 0, 100, 40)
	pts := RouteConnector(from, to, RouteOptions{Clearance: 12})
	if len(pts) != 6 {
		t.Fatalf("backward route should loop, got %v", pts)
	}
	assertOrthogonal(t, pts)
	if pts[0] != (Pt{300, 20}) || pts[5] != (Pt{0, 20}) {
		t.Fatalf("endpoints = %v", pts)
	}
	if pts[2].Y != -12 || pts[3].Y != -12 {
		t.Fatalf("detour should run above the blocks, got %v", pts)
	}
}

func TestRouteConnectorBackwardBelowWhenTargetLower(t *testing.T) {
	from := R(200, 0, 100, 40)
	to := R(0, 200, 100, 40)
	pts := RouteConnector(from, to, RouteOptions{Clearance: 12})
	assertOrthogonal(t, pts)
	if pts[2].Y != 252 || pts[3].Y != 252 {
		t.Fatalf("detour should run below both blocks, got %v", pts)
	}
}

func TestArrowHead(t *testing.T) {
	head := ArrowHead([]Pt{{0, 0}, {10, 0}}, 8)
	if head[1] != (Pt{10, 0}) {
		t.Fatalf("tip = %v", head[1])
	}
	if head[0] != (Pt{2, 4}) || head[2] != (Pt{2, -4}) {
		t.Fatalf("wings = %v %v", head[0], head[2])
	}
}

func TestPolylineLength(t *testing.T) {
	if got := PolylineLength([]Pt{{0, 0}, {10, 0}, {10, 5}}); got != 15 {
		t.Fatalf("length = %v", got)
	}
}
